package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
)

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"port closed", ErrPortClosed, true},
		{"wrapped port closed", fmt.Errorf("read: %w", ErrPortClosed), true},
		{"eof", io.EOF, true},
		{"os closed", os.ErrClosed, true},
		{"unexpected eof", io.ErrUnexpectedEOF, false},
		{"other", errors.New("framing error"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsClosed(tc.err); got != tc.want {
				t.Errorf("IsClosed(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
