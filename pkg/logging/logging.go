// Package logging implements a common log initialization for the
// configurator daemon and its CLI
package logging

import (
	"io"
	stdlog "log"
	"os"
	"path"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	// DirFlag is the common logging flag to be used to set log directory
	DirFlag = "logdir"
	// DirHelp is the help message for DirFlag
	DirHelp = "Directory to store log files"

	// FileFlag is the common logging flag to be used to set log file name
	FileFlag = "logfile"
	// FileHelp is the help message for FileFlag
	FileHelp = "Name for log file, or stdout/stderr"

	// LevelFlag is the common logging flag to be used to set log level
	LevelFlag = "loglevel"
	// LevelHelp is the help message for LevelFlag
	LevelHelp = "Severity of messages to be logged"

	// YY-MM-DD HH:MM:SS.SSSSSS
	timestampFormat = "2006-01-02 15:04:05.000000"
)

var (
	logWriter io.WriteCloser
	hookOnce  sync.Once
)

func openLogFile(filepath string) (io.WriteCloser, error) {
	return os.OpenFile(filepath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
}

func setLogOutput(w io.Writer) {
	log.SetOutput(w)
	stdlog.SetOutput(log.StandardLogger().Writer())
}

// IsFileOutput returns true if logFileName names a file rather than one of
// the standard streams
func IsFileOutput(logFileName string) bool {
	switch strings.ToLower(logFileName) {
	case "stdout", "stderr", "-", "":
		return false
	}
	return true
}

// Init initializes the default logrus logger.
// Should be called as early as possible when a process starts, and again
// after a log file has been rotated.
func Init(logdir string, logFileName string, logLevel string, verboseLogEntry bool) error {
	if verboseLogEntry {
		hookOnce.Do(func() {
			log.AddHook(SourceLocationHook{})
		})
	}

	// Close the previously opened Log file
	if logWriter != nil {
		logWriter.Close()
		logWriter = nil
	}

	l, err := log.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		setLogOutput(os.Stderr)
		log.WithError(err).Debug("failed to parse log level")
		return err
	}
	log.SetLevel(l)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})

	if !IsFileOutput(logFileName) {
		if strings.ToLower(logFileName) == "stdout" || logFileName == "" {
			setLogOutput(os.Stdout)
		} else {
			setLogOutput(os.Stderr)
		}
		return nil
	}

	logFilePath := path.Join(logdir, logFileName)
	logFile, err := openLogFile(logFilePath)
	if err != nil {
		setLogOutput(os.Stderr)
		log.WithError(err).WithField("path", logFilePath).Debug("failed to open log file")
		return err
	}
	setLogOutput(logFile)
	logWriter = logFile
	return nil
}
