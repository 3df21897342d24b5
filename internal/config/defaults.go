package config

const (
	defaultStripePixels        = 60
	defaultEngineMaxFPS        = 60.0
	defaultEngineBrightness    = 1.0
	defaultTransportName       = "udp"
	defaultUDPHost             = "127.0.0.1"
	defaultUDPPort             = 7331
	defaultOPCServer           = "127.0.0.1:7890"
	defaultSPIDevice           = "SPI0.0"
	defaultSPIClockKHz         = 1000
	defaultGatewayListen       = "127.0.0.1:7420"
	defaultDataDir             = "~/.local/share/glow"
	defaultLogDir              = "~/.local/share/glow/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultNotifyTimeout       = 10
	defaultNotifyDedupSeconds  = 600
	defaultNotifyEngineErrors  = true
	defaultNotifyTransportLoss = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Stripe: Stripe{
			Pixels: defaultStripePixels,
		},
		Engine: Engine{
			MaxFPS:     defaultEngineMaxFPS,
			Brightness: defaultEngineBrightness,
		},
		Transport: Transport{
			Name: defaultTransportName,
			UDP: UDP{
				Host: defaultUDPHost,
				Port: defaultUDPPort,
			},
			OPC: OPC{
				Server: defaultOPCServer,
			},
			SPI: SPI{
				Device:   defaultSPIDevice,
				ClockKHz: defaultSPIClockKHz,
			},
		},
		Gateway: Gateway{
			Listen: defaultGatewayListen,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			EngineErrors:       defaultNotifyEngineErrors,
			TransportLoss:      defaultNotifyTransportLoss,
			DedupWindowSeconds: defaultNotifyDedupSeconds,
		},
	}
}
