package monitoring

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/serial-echo/internal/fsutil"
)

func newMemLogger(t *testing.T, level string) (*Logger, *fsutil.MemoryFileSystem, *bytes.Buffer) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	console := &bytes.Buffer{}
	l, err := New(Options{
		Dir:     "/var/log/app",
		Level:   level,
		Name:    "serial-echo",
		Console: console,
		FS:      mfs,
	})
	require.NoError(t, err)
	return l, mfs, console
}

func TestNew_WritesBothSinks(t *testing.T) {
	l, mfs, console := newMemLogger(t, "")
	defer l.Close()

	assert.Equal(t, filepath.Join("/var/log/app", LogFileName), l.Path())
	assert.True(t, mfs.Exists("/var/log/app"))
	assert.NotEmpty(t, l.RunID())

	l.Infof("Read >> [%s]", "hi")

	data, err := mfs.ReadFile(l.Path())
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "INFO- Read >> [hi]")
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\]\{[^}]*logger_test\.go:\d+\}INFO- `, line)
	assert.Contains(t, line, "run_id="+l.RunID())
	assert.True(t, strings.HasPrefix(line, "["), "file line should start with timestamp: %q", line)

	assert.Equal(t, "serial-echo : INFO     Read >> [hi]\n", console.String())
}

func TestNew_LevelFiltersBothSinks(t *testing.T) {
	l, mfs, console := newMemLogger(t, "info")
	defer l.Close()

	l.Debugf("probe returned %d", 0)

	data, err := mfs.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, console.String())

	l.SetLevel(logrus.DebugLevel)
	l.Debugf("probe returned %d", 0)
	assert.Contains(t, console.String(), "DEBUG    probe returned 0")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Dir: "/tmp", Level: "chatty", FS: fsutil.NewMemoryFileSystem()})
	assert.Error(t, err)
}

func TestNew_OpenFailure(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll(filepath.Join("/logs", LogFileName), 0755))

	_, err := New(Options{Dir: "/logs", FS: mfs, Console: io.Discard})
	assert.Error(t, err)
}

func TestNew_AppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		l, err := New(Options{Dir: dir, Console: io.Discard})
		require.NoError(t, err)
		l.Info("Starting application...")
		require.NoError(t, l.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Starting application..."))
}

func TestLogger_Install(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	l, mfs, _ := newMemLogger(t, "")
	defer l.Close()

	l.Install()
	Logf("opened %s", "/dev/ttySerial")

	data, err := mfs.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO- opened /dev/ttySerial")
}

func TestSetLogger_Nil(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	Logf("first")
	assert.True(t, called)

	called = false
	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted %d", 1) })
	assert.False(t, called)
}

func TestFileFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "replaced invalid UTF-8",
		Data:    logrus.Fields{"bytes": 3, "error": errors.New("boom")},
	}

	out, err := (&FileFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[13:04:05]WARNING- replaced invalid UTF-8 bytes=3 error=boom\n", string(out))
}

func TestConsoleFormatter_DefaultName(t *testing.T) {
	entry := &logrus.Entry{Level: logrus.ErrorLevel, Message: "Can't open port /dev/x", Data: logrus.Fields{}}

	out, err := (&ConsoleFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "root        : ERROR    Can't open port /dev/x\n", string(out))
}
