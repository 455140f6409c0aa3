package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type defLogger struct {
	name string
}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (d defLogger) WithContext(context.Context) Logger {
	return d
}

func (d defLogger) print(level, msg string, args ...any) {
	name := "ACCOUNT"
	if d.name != "" {
		name = strings.ToUpper(d.name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", level, name, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}

type defLoggerProvider struct{}

func (defLoggerProvider) GetLogger(name string) Logger {
	return defLogger{name: name}
}

// ResolveLogger returns the provider and logger a component should use.
// An explicit logger wins over the provider, a nil provider falls back
// to the default console logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider == nil {
		provider = defLoggerProvider{}
	}
	if logger != nil {
		return provider, logger
	}
	if l := provider.GetLogger(name); l != nil {
		return provider, l
	}
	return provider, defLogger{name: name}
}

// ZerologLogger adapts a zerolog.Logger to Logger. Args are read as
// key/value pairs.
type ZerologLogger struct {
	z zerolog.Logger
}

// NewZerologLogger wraps z
func NewZerologLogger(z zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{z: z}
}

func (l *ZerologLogger) Debug(msg string, args ...any) { l.emit(l.z.Debug(), msg, args) }
func (l *ZerologLogger) Info(msg string, args ...any)  { l.emit(l.z.Info(), msg, args) }
func (l *ZerologLogger) Warn(msg string, args ...any)  { l.emit(l.z.Warn(), msg, args) }
func (l *ZerologLogger) Error(msg string, args ...any) { l.emit(l.z.Error(), msg, args) }

func (l *ZerologLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	if z := zerolog.Ctx(ctx); z != nil && z.GetLevel() != zerolog.Disabled {
		return &ZerologLogger{z: *z}
	}
	return l
}

func (l *ZerologLogger) emit(evt *zerolog.Event, msg string, args []any) {
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			evt = evt.Interface("extra", args[i])
			break
		}
		if err, ok := args[i+1].(error); ok {
			evt = evt.AnErr(key, err)
			continue
		}
		evt = evt.Interface(key, args[i+1])
	}
	evt.Msg(msg)
}

// ZerologProvider hands out loggers tagged with a component field
type ZerologProvider struct {
	Base zerolog.Logger
}

func (p ZerologProvider) GetLogger(name string) Logger {
	return NewZerologLogger(p.Base.With().Str("component", name).Logger())
}
