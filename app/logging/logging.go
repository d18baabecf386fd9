package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Debug bool
	// File, when set, receives a copy of the log output and is rotated
	// by size.
	File string
}

// Setup installs the default slog logger and returns the writer it logs
// to. Close the returned closer on shutdown to flush the log file.
func Setup(opts Options) (io.Writer, io.Closer) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	slog.SetDefault(New(w, opts.Debug))
	return w, closer
}

func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
