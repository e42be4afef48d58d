// Package logging sets up the operational log.
package logging

import (
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

func textFormatter(disableColors bool) *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		DisableColors:   disableColors,
	}
}

// New returns a logger writing timestamped text lines to console and, when
// path is not empty, to path truncated first. Console colors follow the
// terminal; the file never gets them. The returned closer releases the file.
func New(console io.Writer, path string, debug bool) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(textFormatter(false))
	log.SetOutput(console)
	log.SetLevel(logrus.InfoLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if path == "" {
		return log, nopCloser{}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, errors.Annotate(err, "cannot open log file")
	}
	log.AddHook(&fileHook{w: f, formatter: textFormatter(true)})
	return log, f, nil
}

// fileHook copies every entry to w with its own formatter.
type fileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
