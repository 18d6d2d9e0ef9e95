package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var current atomic.Pointer[logrus.Logger]

func init() {
	current.Store(silent())
}

func silent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// SetLogger installs the logger used by every package in the module.
// Passing nil restores the silent default.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = silent()
	}
	current.Store(l)
}

// Get returns the active logger.
func Get() *logrus.Logger {
	return current.Load()
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return Get().WithField("component", component)
}

// New builds a logger writing to stderr and/or a file. An unknown level falls
// back to info.
func New(level, logFile string, console bool) (*logrus.Logger, error) {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	if console {
		writers = append(writers, os.Stderr)
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	if len(writers) > 0 {
		log.SetOutput(io.MultiWriter(writers...))
	} else {
		log.SetOutput(io.Discard)
	}
	return log, nil
}
