package printer

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Device sends raw ESC/POS bytes to a thermal printer.
type Device interface {
	Write(ctx context.Context, data []byte) error
	Available(ctx context.Context) bool
	Kind() string
}

// usbDevice writes to a character device such as /dev/usb/lp0. The file is
// opened per job so an unplugged printer recovers without a restart.
type usbDevice struct {
	path string
}

func NewUSBDevice(path string) Device {
	return &usbDevice{path: path}
}

func (p *usbDevice) Write(_ context.Context, data []byte) error {
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: open %s: %w", p.path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.path, err)
	}
	return nil
}

func (p *usbDevice) Available(_ context.Context) bool {
	_, err := os.Stat(p.path)
	return err == nil
}

func (p *usbDevice) Kind() string { return "usb" }

// networkDevice speaks raw TCP, usually port 9100.
type networkDevice struct {
	address string
	timeout time.Duration
}

func NewNetworkDevice(address string, timeout time.Duration) Device {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &networkDevice{address: address, timeout: timeout}
}

func (p *networkDevice) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: p.timeout}
	return d.DialContext(ctx, "tcp", p.address)
}

func (p *networkDevice) Write(ctx context.Context, data []byte) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("printer: connect %s: %w", p.address, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.address, err)
	}
	return nil
}

func (p *networkDevice) Available(ctx context.Context) bool {
	conn, err := p.dial(ctx)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *networkDevice) Kind() string { return "network" }

type nullDevice struct{}

// NewNullDevice discards everything; used when no printer is attached.
func NewNullDevice() Device {
	return nullDevice{}
}

func (nullDevice) Write(context.Context, []byte) error { return nil }
func (nullDevice) Available(context.Context) bool      { return false }
func (nullDevice) Kind() string                        { return "none" }

// NewDevice picks a device for printerType: "usb", "network" or "none".
func NewDevice(printerType, path, address string, timeout time.Duration) (Device, error) {
	switch printerType {
	case "usb":
		if path == "" {
			return nil, fmt.Errorf("printer: device path is required for usb printers")
		}
		return NewUSBDevice(path), nil
	case "network":
		if address == "" {
			return nil, fmt.Errorf("printer: address is required for network printers")
		}
		return NewNetworkDevice(address, timeout), nil
	case "none", "":
		return NewNullDevice(), nil
	default:
		return nil, fmt.Errorf("printer: unknown printer type %q (use usb, network, or none)", printerType)
	}
}
