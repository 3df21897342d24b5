package transport

import (
	"fmt"

	"github.com/kellydunn/go-opc"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// OPC message payloads carry a uint16 byte length, three bytes per pixel.
const opcMaxPixels = 65535 / 3

// opcTransport feeds an Open Pixel Control server (a Fadecandy board or
// compatible daemon). Channel 0 broadcasts to every output.
type opcTransport struct {
	client  *opc.Client
	channel uint8
}

func opcDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "opc",
		Kind:    plugin.KindTransport,
		Summary: "Open Pixel Control client (Fadecandy and friends)",
		Schema: plugin.Schema{
			"server":  {Type: plugin.ParamString, Default: "127.0.0.1:7890", Description: "OPC server address"},
			"channel": {Type: plugin.ParamInt, Default: 0, Min: 0, Max: 255, Description: "OPC channel, 0 broadcasts"},
		},
		New: func(params plugin.Params) (any, error) {
			return newOPC(params)
		},
	}
}

func newOPC(params plugin.Params) (*opcTransport, error) {
	server, _ := params["server"].(string)
	channel, _ := params["channel"].(int)
	client := opc.NewClient()
	if err := client.Connect("tcp", server); err != nil {
		return nil, fmt.Errorf("connect to OPC server %s: %w: %v", server, ErrUnavailable, err)
	}
	return &opcTransport{client: client, channel: uint8(channel)}, nil
}

func (t *opcTransport) Capabilities() Capabilities {
	return Capabilities{MaxPixels: opcMaxPixels}
}

func (t *opcTransport) Send(frame stripe.Frame) error {
	if err := checkSize(frame, t.Capabilities()); err != nil {
		return err
	}
	if t.client == nil {
		return fmt.Errorf("send frame: %w: connection closed", ErrUnavailable)
	}

	m := opc.NewMessage(t.channel)
	m.SetLength(uint16(len(frame) * 3))
	for i, c := range frame {
		r, g, b := c.RGB8()
		m.SetPixelColor(i, r, g, b)
	}
	if err := t.client.Send(m); err != nil {
		return fmt.Errorf("send frame: %w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close drops the client. go-opc owns the underlying socket and exposes no
// disconnect, so the connection is released with the reference.
func (t *opcTransport) Close() error {
	t.client = nil
	return nil
}
