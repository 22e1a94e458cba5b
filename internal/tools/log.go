package tools

import (
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

// SetupLogging records everything logged through the standard logrus logger
// in logFile as well as stdout. Output from the standard library log package
// is routed through logrus too. The returned func closes the log file.
func SetupLogging(level logrus.Level, logFile string) (*logrus.Logger, func() error, error) {
	l := logrus.StandardLogger()
	l.Formatter = &logrus.JSONFormatter{}
	l.SetLevel(level)

	closer := func() error { return nil }
	out := io.Writer(os.Stdout)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(f, os.Stdout)
		closer = f.Close
	}
	l.SetOutput(out)
	log.SetFlags(0)
	log.SetOutput(l.WriterLevel(logrus.InfoLevel))
	return l, closer, nil
}
