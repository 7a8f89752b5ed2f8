package serialport

import (
	"bytes"
	"sync"
	"time"
)

// TestableSerialPort implements Port with configurable behaviour for testing.
// It provides fine-grained control over reads, writes, errors, and polling.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// Writes records each Write payload separately
	Writes [][]byte

	// PendingError is returned by the next Pending call if set
	PendingError error

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write accept one byte less than offered
	ShortWrite bool

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// PendingCalls records when each Pending call happened
	PendingCalls []time.Time

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// OnPending runs after each Pending call with the lock released
	OnPending func(call int)
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

// Pending reports the unread length of ReadBuffer.
func (t *TestableSerialPort) Pending() (int, error) {
	t.mu.Lock()
	t.PendingCalls = append(t.PendingCalls, time.Now())
	call := len(t.PendingCalls)
	hook := t.OnPending

	var (
		n   int
		err error
	)
	switch {
	case t.Closed:
		err = ErrPortClosed
	case t.PendingError != nil:
		err = t.PendingError
		t.PendingError = nil
	default:
		n = t.ReadBuffer.Len()
	}
	t.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return n, err
}

// Read reads from the read buffer, optionally simulating errors.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, ErrPortClosed
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, ErrPortClosed
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	if t.ShortWrite && len(p) > 0 {
		p = p[:len(p)-1]
	}

	t.Writes = append(t.Writes, append([]byte(nil), p...))
	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	return t.CloseError
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}

// GetWrites returns a copy of each recorded Write payload.
func (t *TestableSerialPort) GetWrites() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]byte, len(t.Writes))
	copy(out, t.Writes)
	return out
}

// GetPendingCalls returns the times Pending was called.
func (t *TestableSerialPort) GetPendingCalls() []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]time.Time(nil), t.PendingCalls...)
}

// Reset clears all buffers and resets state.
func (t *TestableSerialPort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Reset()
	t.WriteBuffer.Reset()
	t.Writes = nil
	t.PendingCalls = nil
	t.ReadCalls = 0
	t.WriteCalls = 0
	t.Closed = false
	t.PendingError = nil
	t.ReadError = nil
	t.WriteError = nil
	t.CloseError = nil
	t.ShortWrite = false
}

// MockSerialPortFactory implements SerialPortFactory for testing.
type MockSerialPortFactory struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port Port

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Mode *SerialPortMode
}

// NewMockSerialPortFactory creates a new MockSerialPortFactory.
func NewMockSerialPortFactory(port Port) *MockSerialPortFactory {
	return &MockSerialPortFactory{Port: port}
}

// Open returns the configured port or error.
func (f *MockSerialPortFactory) Open(path string, mode *SerialPortMode) (Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{
		Path: path,
		Mode: mode,
	})

	if f.Error != nil {
		return nil, f.Error
	}

	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockSerialPortFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}
