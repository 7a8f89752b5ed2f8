package echo

import (
	"errors"
	"fmt"
)

var (
	// ErrShortWrite means the device accepted fewer bytes than the frame held.
	ErrShortWrite = errors.New("short write to serial port")

	// ErrInvalidUTF8 is reported under DecodeSkip when input is not UTF-8.
	ErrInvalidUTF8 = errors.New("serial input is not valid UTF-8")
)

// Kind names the step of a cycle that failed.
type Kind string

const (
	KindPoll   Kind = "poll"
	KindRead   Kind = "read"
	KindDecode Kind = "decode"
	KindWrite  Kind = "write"
)

// CycleError is returned by Poll. Fatal is set when the device is gone and
// polling it again cannot succeed.
type CycleError struct {
	Kind  Kind
	Err   error
	Fatal bool
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
