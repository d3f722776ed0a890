package logging

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the format used for timestamps by the stdout and test appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. Any zapcore.Core is an Appender.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

type writerAppender struct {
	out     zapcore.WriteSyncer
	encoder zapcore.Encoder
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() Appender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender creates a new appender that writes console formatted lines to the writer.
func NewWriterAppender(writer io.Writer) Appender {
	encoderCfg := NewZapLoggerConfig().EncoderConfig
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr)
	return &writerAppender{
		out:     zapcore.AddSync(writer),
		encoder: zapcore.NewConsoleEncoder(encoderCfg),
	}
}

// NewFileAppender creates an appender writing console formatted lines to filename. The file is rotated
// once it grows past 64 MB and the last three rotations are kept compressed. The returned closer
// releases the file.
func NewFileAppender(filename string) (Appender, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    64,
		MaxBackups: 3,
		Compress:   true,
	}
	return NewWriterAppender(rotator), rotator
}

func (wa *writerAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := wa.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	_, err = wa.out.Write(buf.Bytes())
	return err
}

func (wa *writerAppender) Sync() error {
	return wa.out.Sync()
}
