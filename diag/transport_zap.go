//go:build !(rp2040 || rp2350)

package diag

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapTransport renders entries as structured zap records. Host builds only.
type ZapTransport struct {
	l *zap.Logger
}

func NewZapTransport(l *zap.Logger) *ZapTransport {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapTransport{l: l}
}

func (t *ZapTransport) Send(e *Entry) error {
	ce := t.l.Check(zapLevel(e.Level), e.Msg)
	if ce == nil {
		return nil
	}
	fs := make([]zap.Field, 0, 2+MaxFields)
	fs = append(fs, zap.Duration("at", e.At))
	if e.Source != "" {
		fs = append(fs, zap.String("source", e.Source))
	}
	for _, f := range e.Fields() {
		switch v := f.Value().(type) {
		case string:
			fs = append(fs, zap.String(f.Key, v))
		case int64:
			fs = append(fs, zap.Int64(f.Key, v))
		case bool:
			fs = append(fs, zap.Bool(f.Key, v))
		}
	}
	ce.Write(fs...)
	return nil
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
