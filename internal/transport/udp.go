package transport

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// Datagram layout: 2 byte magic, 1 byte protocol version, big-endian uint16
// pixel count, then 3 bytes (R, G, B) per pixel. One datagram per frame,
// fire and forget.
const (
	udpMagic       = "GL"
	udpVersion     = 1
	udpHeaderSize  = 5
	udpMaxDatagram = 64 << 10
	udpMaxRate     = 100
)

// udpMaxPixels is what fits beside the header in one datagram.
const udpMaxPixels = (udpMaxDatagram - udpHeaderSize) / 3

type udpTransport struct {
	conn *net.UDPConn
	buf  []byte
}

func udpDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "udp",
		Kind:    plugin.KindTransport,
		Summary: "Datagram-per-frame delivery to a network-addressed stripe",
		Schema: plugin.Schema{
			"host": {Type: plugin.ParamString, Default: "127.0.0.1", Description: "Stripe controller host"},
			"port": {Type: plugin.ParamInt, Default: 7331, Min: 1, Max: 65535, Description: "Stripe controller port"},
		},
		New: func(params plugin.Params) (any, error) {
			return newUDP(params)
		},
	}
}

func newUDP(params plugin.Params) (*udpTransport, error) {
	host, _ := params["host"].(string)
	port, _ := params["port"].(int)
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("resolve stripe address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial stripe: %w: %v", ErrUnavailable, err)
	}
	return &udpTransport{conn: conn}, nil
}

func (t *udpTransport) Capabilities() Capabilities {
	return Capabilities{MaxPixels: udpMaxPixels, MaxRate: udpMaxRate}
}

func (t *udpTransport) Send(frame stripe.Frame) error {
	if err := checkSize(frame, t.Capabilities()); err != nil {
		return err
	}
	if t.conn == nil {
		return fmt.Errorf("send frame: %w: connection closed", ErrUnavailable)
	}

	need := udpHeaderSize + len(frame)*3
	if cap(t.buf) < need {
		t.buf = make([]byte, 0, need)
	}
	buf := append(t.buf[:0], udpMagic...)
	buf = append(buf, udpVersion)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(frame)))
	for _, c := range frame {
		r, g, b := c.RGB8()
		buf = append(buf, r, g, b)
	}
	t.buf = buf

	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("send frame: %w: %v", ErrUnavailable, err)
	}
	if _, err := t.conn.Write(buf); err != nil {
		return fmt.Errorf("send frame: %w: %v", ErrUnavailable, err)
	}
	return nil
}

func (t *udpTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
