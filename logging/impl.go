package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	cores []zapcore.Core
}

func stdout() *os.File {
	return os.Stdout
}

func (imp *impl) AddCore(core zapcore.Core) {
	imp.cores = append(imp.cores, core)
}

func (imp *impl) AddAppender(appender zapcore.Core) {
	imp.AddCore(appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return &impl{
		name:  newName,
		level: NewAtomicLevelAt(imp.level.Get()),
		cores: imp.cores,
	}
}

func (imp *impl) Sync() error {
	var errs []error
	for _, core := range imp.cores {
		if err := core.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

// AsZap builds a sugared zap logger writing to every core of this logger.
func (imp *impl) AsZap() *zap.SugaredLogger {
	if len(imp.cores) == 0 {
		return zap.NewNop().Sugar()
	}
	return zap.New(zapcore.NewTee(imp.cores...)).Sugar().Named(imp.name)
}

func (imp *impl) shouldLog(level Level) bool {
	return level >= imp.level.Get()
}

func (imp *impl) write(level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now().UTC(),
		LoggerName: imp.name,
		Message:    msg,
	}
	for _, core := range imp.cores {
		if !core.Enabled(entry.Level) {
			continue
		}
		if err := core.Write(entry, fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// Turns `keysAndValues` into zap fields where the odd elements are the keys and their following even
// counterpart is the value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
		keyObj := keysAndValues[keyIdx]
		var keyStr string
		if stringer, ok := keyObj.(fmt.Stringer); ok {
			keyStr = stringer.String()
		} else {
			keyStr = fmt.Sprintf("%v", keyObj)
		}

		if keyIdx+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(keyStr, keysAndValues[keyIdx+1]))
		} else {
			// API mis-use. Rather than logging a logging mis-use, slip in an error message such
			// that we don't silently discard it.
			fields = append(fields, zap.Any(keyStr, fmt.Errorf("unpaired log key")))
		}
	}
	return fields
}

func (imp *impl) logArgs(level Level, args ...interface{}) {
	if imp.shouldLog(level) {
		imp.write(level, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) logf(level Level, template string, args ...interface{}) {
	if imp.shouldLog(level) {
		imp.write(level, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) logw(level Level, msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(level) {
		imp.write(level, msg, toFields(keysAndValues))
	}
}

func (imp *impl) Debug(args ...interface{}) { imp.logArgs(DEBUG, args...) }

func (imp *impl) Debugf(template string, args ...interface{}) { imp.logf(DEBUG, template, args...) }

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logw(DEBUG, msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) { imp.logArgs(INFO, args...) }

func (imp *impl) Infof(template string, args ...interface{}) { imp.logf(INFO, template, args...) }

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logw(INFO, msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) { imp.logArgs(WARN, args...) }

func (imp *impl) Warnf(template string, args ...interface{}) { imp.logf(WARN, template, args...) }

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logw(WARN, msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) { imp.logArgs(ERROR, args...) }

func (imp *impl) Errorf(template string, args ...interface{}) { imp.logf(ERROR, template, args...) }

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logw(ERROR, msg, keysAndValues...)
}
