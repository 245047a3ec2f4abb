package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger writing to stdout and, optionally, a buffered log file
type Logger struct {
	*zap.Logger
	file   *os.File
	writer *zapcore.BufferedWriteSyncer
}

// Close properly flushes and closes the log file
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.writer != nil {
		if err := l.writer.Stop(); err != nil {
			return err
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Flush() error {
	if l.writer != nil {
		return l.writer.Sync()
	}
	return nil
}

// NewLogger logs at level to stdout in console format and, when filename is not empty,
// to filename as JSON lines
func NewLogger(filename string, level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), lvl),
	}
	l := &Logger{}
	if filename != "" {
		logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
		l.file = logFile
		l.writer = &zapcore.BufferedWriteSyncer{WS: zapcore.AddSync(logFile)}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), l.writer, lvl))
	}

	// Write log to both stdout and log file
	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, nil
}
