// Package serialport wraps the character device the echo loop talks to.
// Production code opens ports through go.bug.st/serial; tests use the
// doubles in mock.go.
package serialport

import (
	"errors"
	"io"
	"os"

	"go.bug.st/serial"
)

// ErrPortClosed is returned by operations on a port that has been closed.
var ErrPortClosed = errors.New("serial port closed")

// Port is the minimal interface the echo loop needs from a serial device.
type Port interface {
	io.ReadWriter
	io.Closer
	// Pending reports how many bytes can be read without blocking.
	Pending() (int, error)
}

// SerialPortMode defines serial port configuration parameters.
type SerialPortMode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// Parity defines serial port parity options.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits defines serial port stop bit options.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// DefaultSerialPortMode returns 9600 8N1, the line settings a freshly opened
// tty gets when nothing else is configured.
func DefaultSerialPortMode() *SerialPortMode {
	return &SerialPortMode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

// SerialPortFactory opens serial ports. The process entry point receives one
// so tests can substitute MockSerialPortFactory.
type SerialPortFactory interface {
	// Open opens a serial port at the specified path with the given mode.
	Open(path string, mode *SerialPortMode) (Port, error)
}

// IsClosed reports whether err means the device is gone for good: the port was
// closed, the driver reported end of file, or go.bug.st/serial flagged the
// handle as closed.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPortClosed) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	var perr *serial.PortError
	if errors.As(err, &perr) {
		return perr.Code() == serial.PortClosed
	}
	return false
}
