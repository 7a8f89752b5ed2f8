package serialport

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/serial-echo/internal/monitoring"
)

// DefaultProbeTimeout bounds how long Pending waits for the driver to hand over
// bytes that are already queued.
const DefaultProbeTimeout = 5 * time.Millisecond

// RealSerialPortFactory opens ports with go.bug.st/serial.
type RealSerialPortFactory struct {
	ProbeTimeout time.Duration
}

// NewRealSerialPortFactory returns a factory for real hardware.
func NewRealSerialPortFactory() *RealSerialPortFactory {
	return &RealSerialPortFactory{ProbeTimeout: DefaultProbeTimeout}
}

// Open opens path for read/write. A nil mode uses DefaultSerialPortMode.
func (f *RealSerialPortFactory) Open(path string, mode *SerialPortMode) (Port, error) {
	if mode == nil {
		mode = DefaultSerialPortMode()
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   convertParity(mode.Parity),
		StopBits: convertStopBits(mode.StopBits),
	})
	if err != nil {
		return nil, err
	}

	probe := f.ProbeTimeout
	if probe <= 0 {
		probe = DefaultProbeTimeout
	}
	if err := port.SetReadTimeout(probe); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	monitoring.Logf("opened %s at %d baud", path, mode.BaudRate)
	return newDevice(port), nil
}

func convertParity(p Parity) serial.Parity {
	switch p {
	case OddParity:
		return serial.OddParity
	case EvenParity:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

func convertStopBits(s StopBits) serial.StopBits {
	if s == TwoStopBits {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// device adapts a serial.Port to Port. go.bug.st/serial has no in-waiting
// query, so Pending drains whatever the driver already holds into a local
// buffer using the short read timeout, and Read serves that buffer first.
type device struct {
	port    serial.Port
	pending bytes.Buffer
	chunk   []byte
}

func newDevice(port serial.Port) *device {
	return &device{port: port, chunk: make([]byte, 4096)}
}

func (d *device) Pending() (int, error) {
	for {
		n, err := d.port.Read(d.chunk)
		if n > 0 {
			d.pending.Write(d.chunk[:n])
		}
		if err != nil {
			return d.pending.Len(), err
		}
		// a short read means the driver queue is empty
		if n < len(d.chunk) {
			return d.pending.Len(), nil
		}
	}
}

func (d *device) Read(p []byte) (int, error) {
	if d.pending.Len() > 0 {
		return d.pending.Read(p)
	}
	return d.port.Read(p)
}

func (d *device) Write(p []byte) (int, error) {
	return d.port.Write(p)
}

func (d *device) Close() error {
	d.pending.Reset()
	return d.port.Close()
}
