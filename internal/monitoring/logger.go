// Package monitoring owns the process log sink and the package-level Logf
// hook used by code that has no logger handle of its own.
package monitoring

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/banshee-data/serial-echo/internal/fsutil"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf until
// a Logger is installed.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogFileName is the fixed name of the log file inside the log directory.
const LogFileName = "iox-serial-port.log"

// Options configures New.
type Options struct {
	// Dir is the directory holding the log file. It is created if missing.
	Dir string
	// FileName overrides LogFileName.
	FileName string
	// Level is a logrus level name; empty means "info".
	Level string
	// Name prefixes console lines.
	Name string
	// Console receives the console rendition. Defaults to os.Stderr.
	Console io.Writer
	// FS defaults to fsutil.OSFileSystem.
	FS fsutil.FileSystem
}

// Logger is the process-wide log sink: a logrus logger that renders a short
// format to the console and appends a timestamped, source-located format to
// the log file. It is created once at startup and handed to the components
// that log.
type Logger struct {
	*logrus.Logger

	file  io.WriteCloser
	path  string
	runID string
}

// New creates the log directory, opens the log file for appending and returns
// a Logger writing to both sinks.
func New(opts Options) (*Logger, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	name := opts.FileName
	if name == "" {
		name = LogFileName
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(opts.Level); err != nil {
			return nil, err
		}
	}

	if err := fsys.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", opts.Dir, err)
	}
	path := filepath.Join(opts.Dir, name)
	f, err := fsys.OpenAppend(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	runID := uuid.NewString()

	l := logrus.New()
	l.SetOutput(console)
	l.SetLevel(level)
	l.SetReportCaller(true)
	l.SetFormatter(&ConsoleFormatter{Name: opts.Name})
	l.AddHook(&fileHook{
		w:         f,
		formatter: &FileFormatter{},
		fields:    logrus.Fields{"run_id": runID},
	})

	return &Logger{Logger: l, file: f, path: path, runID: runID}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// RunID identifies this process run in the log file.
func (l *Logger) RunID() string { return l.runID }

// Install points the package-level Logf at this logger.
func (l *Logger) Install() {
	SetLogger(l.Printf)
}

// Close closes the log file. The console sink is left alone.
func (l *Logger) Close() error {
	return l.file.Close()
}

// fileHook appends every entry to the log file using its own formatter, so
// the file and console can carry different layouts.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
	fields    logrus.Fields
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	e := entry
	if len(h.fields) > 0 {
		e = entry.WithFields(h.fields)
		e.Level = entry.Level
		e.Message = entry.Message
		e.Caller = entry.Caller
		e.Time = entry.Time
	}
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// FileFormatter renders [HH:MM:SS]{file:line}LEVEL- message key=value...
type FileFormatter struct{}

func (f *FileFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s]", e.Time.Format("15:04:05"))
	if e.HasCaller() {
		fmt.Fprintf(&b, "{%s:%d}", e.Caller.File, e.Caller.Line)
	}
	fmt.Fprintf(&b, "%s- %s", strings.ToUpper(e.Level.String()), e.Message)
	writeFields(&b, e.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// ConsoleFormatter renders "name        : LEVEL    message".
type ConsoleFormatter struct {
	Name string
}

func (f *ConsoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	name := f.Name
	if name == "" {
		name = "root"
	}
	fmt.Fprintf(&b, "%-12s: %-8s %s", name, strings.ToUpper(e.Level.String()), e.Message)
	writeFields(&b, e.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func writeFields(b *bytes.Buffer, data logrus.Fields) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, data[k])
	}
}
