// Command serial-echo opens a serial device and, every poll interval, echoes
// whatever it received back to the device wrapped in square brackets. It runs
// until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/banshee-data/serial-echo/internal/config"
	"github.com/banshee-data/serial-echo/internal/echo"
	"github.com/banshee-data/serial-echo/internal/fsutil"
	"github.com/banshee-data/serial-echo/internal/monitoring"
	"github.com/banshee-data/serial-echo/internal/serialport"
	"github.com/banshee-data/serial-echo/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], env{os.LookupEnv, fsutil.OSFileSystem{}, os.Stderr}, serialport.NewRealSerialPortFactory())
	stop()
	os.Exit(code)
}

// env carries the process surroundings so tests can replace them.
type env struct {
	lookup  func(string) (string, bool)
	fs      fsutil.FileSystem
	console io.Writer
}

func run(ctx context.Context, args []string, e env, ports serialport.SerialPortFactory) int {
	cfg, err := config.Resolve(args, e.lookup, e.fs)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("serial-echo: %v", err)
		return 1
	}

	logger, err := monitoring.New(monitoring.Options{
		Dir:      cfg.LogDir,
		FileName: cfg.LogFile,
		Level:    cfg.LogLevel,
		Name:     "serial-echo",
		Console:  e.console,
		FS:       e.fs,
	})
	if err != nil {
		log.Printf("serial-echo: failed to set up logging at %s: %v", cfg.LogFilePath(), err)
		return 1
	}
	defer logger.Close()
	logger.Install()
	defer monitoring.SetLogger(log.Printf)

	logger.WithField("version", version.String()).Info("Starting application...")
	logger.WithFields(logrus.Fields{
		"log_file": logger.Path(),
		"run_id":   logger.RunID(),
	}).Debugf("device=%s interval=%s decode=%s",
		cfg.Device, cfg.GetPollInterval(), cfg.GetDecodePolicy())

	port, err := ports.Open(cfg.Device, serialport.DefaultSerialPortMode())
	if err != nil {
		logger.WithError(err).Errorf("Can't open port %s", cfg.Device)
		return 1
	}
	defer port.Close()

	loop := echo.New(port, logger, echo.Options{
		Interval:     cfg.GetPollInterval(),
		DecodePolicy: cfg.GetDecodePolicy(),
	})
	runErr := loop.Run(ctx)

	s := loop.Stats()
	logger.Infof("polls=%d echoes=%d errors=%d bytes_in=%d bytes_out=%d",
		s.Polls, s.Echoes, s.Errors, s.BytesIn, s.BytesOut)
	if runErr != nil {
		logger.WithError(runErr).Error("echo loop stopped")
		return 1
	}

	logger.Info("All done. Goodbye!")
	return 0
}
