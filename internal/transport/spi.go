package transport

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

var hostInit sync.Once

// spiTransport clocks frames out over a directly attached SPI bus, for
// stripes like the WS2801 that take raw RGB bytes at mode 0.
type spiTransport struct {
	port spi.PortCloser
	conn spi.Conn
}

func spiDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "spi",
		Kind:    plugin.KindTransport,
		Summary: "Directly attached stripe on an SPI bus",
		Schema: plugin.Schema{
			"device":    {Type: plugin.ParamString, Default: "SPI0.0", Description: "SPI port name as listed by spireg"},
			"clock_khz": {Type: plugin.ParamInt, Default: 1000, Min: 100, Max: 32000, Description: "Bus clock in kHz"},
		},
		New: func(params plugin.Params) (any, error) {
			return newSPI(params)
		},
	}
}

func newSPI(params plugin.Params) (*spiTransport, error) {
	device, _ := params["device"].(string)
	clockKHz, _ := params["clock_khz"].(int)

	var initErr error
	hostInit.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("initialize periph host: %w: %v", ErrUnavailable, initErr)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("open SPI port %s: %w: %v", device, ErrUnavailable, err)
	}
	conn, err := port.Connect(physic.Frequency(clockKHz)*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect SPI port %s: %w: %v", device, ErrUnavailable, err)
	}
	return &spiTransport{port: port, conn: conn}, nil
}

func (t *spiTransport) Capabilities() Capabilities {
	return Capabilities{}
}

func (t *spiTransport) Send(frame stripe.Frame) error {
	if t.conn == nil {
		return fmt.Errorf("send frame: %w: port closed", ErrUnavailable)
	}
	if err := t.conn.Tx(frame.Bytes(), nil); err != nil {
		return fmt.Errorf("send frame: %w: %v", ErrUnavailable, err)
	}
	return nil
}

func (t *spiTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.conn = nil
	return err
}
