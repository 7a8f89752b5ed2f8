// Package echo implements the poll/read/echo cycle run against a serial
// device: every interval it checks how many bytes are waiting, reads them,
// logs the text and writes it back wrapped in square brackets.
package echo

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/banshee-data/serial-echo/internal/serialport"
	"github.com/banshee-data/serial-echo/internal/timeutil"
)

// DefaultInterval is the time between polls.
const DefaultInterval = 2 * time.Second

// Options tunes a Loop. The zero value polls every DefaultInterval and
// replaces invalid UTF-8.
type Options struct {
	Interval     time.Duration
	DecodePolicy DecodePolicy
	Clock        timeutil.Clock // nil means timeutil.RealClock
}

// Result describes one poll.
type Result struct {
	Pending  int    // bytes reported waiting
	Read     int    // bytes actually read
	Text     string // decoded text
	Written  int    // bytes written back
	Replaced bool   // invalid UTF-8 was replaced
}

// Stats accumulates over the lifetime of a Loop.
type Stats struct {
	Polls    int
	Echoes   int
	Errors   int
	BytesIn  int
	BytesOut int
	LastEcho time.Time
}

// Loop owns the serial port for its lifetime. It is not safe for concurrent
// use.
type Loop struct {
	port     serialport.Port
	log      logrus.FieldLogger
	interval time.Duration
	policy   DecodePolicy
	clock    timeutil.Clock
	stats    Stats
}

// New returns a Loop echoing on port and logging to log.
func New(port serialport.Port, log logrus.FieldLogger, opts Options) *Loop {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Loop{
		port:     port,
		log:      log,
		interval: interval,
		policy:   opts.DecodePolicy,
		clock:    clock,
	}
}

// Interval returns the configured poll interval.
func (l *Loop) Interval() time.Duration { return l.interval }

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats { return l.stats }

// Frame wraps text in square brackets for writing back to the device.
func Frame(text string) []byte {
	b := make([]byte, 0, len(text)+2)
	b = append(b, '[')
	b = append(b, text...)
	return append(b, ']')
}

// Poll runs a single cycle without sleeping. Errors are *CycleError.
func (l *Loop) Poll() (Result, error) {
	var res Result
	l.stats.Polls++

	n, err := l.port.Pending()
	if err != nil {
		return res, l.fail(KindPoll, err)
	}
	res.Pending = n
	if n == 0 {
		return res, nil
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(l.port, buf)
	res.Read = got
	l.stats.BytesIn += got
	if err != nil {
		return res, l.fail(KindRead, err)
	}

	text, replaced, err := decode(buf, l.policy)
	if err != nil {
		return res, l.fail(KindDecode, err)
	}
	res.Text, res.Replaced = text, replaced
	if replaced {
		l.log.WithField("bytes", n).Warn("replaced invalid UTF-8 in serial input")
	}

	l.log.Infof("Read >> [%s]", text)

	frame := Frame(text)
	w, err := l.port.Write(frame)
	res.Written = w
	l.stats.BytesOut += w
	if err != nil {
		return res, l.fail(KindWrite, err)
	}
	if w != len(frame) {
		return res, l.fail(KindWrite, ErrShortWrite)
	}

	l.stats.Echoes++
	l.stats.LastEcho = l.clock.Now()
	return res, nil
}

// Run polls, then sleeps the interval, until ctx is done. It returns nil when
// ctx ends the loop and the fatal *CycleError when the device goes away.
// Non-fatal cycle errors are logged and the loop carries on.
func (l *Loop) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if _, err := l.Poll(); err != nil {
			var cerr *CycleError
			if errors.As(err, &cerr) && cerr.Fatal {
				l.log.WithError(cerr.Err).Errorf("serial device lost during %s", cerr.Kind)
				return err
			}
			l.log.WithError(err).Warn("echo cycle failed")
		}

		if !l.sleep(ctx) {
			break
		}
	}
	return nil
}

// sleep waits one interval. It reports false if ctx ended first.
func (l *Loop) sleep(ctx context.Context) bool {
	t := l.clock.NewTimer(l.interval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}

func (l *Loop) fail(kind Kind, err error) error {
	l.stats.Errors++
	return &CycleError{
		Kind:  kind,
		Err:   err,
		Fatal: kind != KindDecode && serialport.IsClosed(err),
	}
}
