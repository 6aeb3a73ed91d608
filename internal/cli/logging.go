package cli

import (
	"fmt"
	"io"
	stdslog "log/slog"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/internal/config"
	rclogrus "github.com/unkn0wn-root/rowcache/log/logrus"
	rcslog "github.com/unkn0wn-root/rowcache/log/slog"
	rczap "github.com/unkn0wn-root/rowcache/log/zap"
	rczerolog "github.com/unkn0wn-root/rowcache/log/zerolog"
)

func noop() error { return nil }

// newLogger builds the configured adapter writing JSON lines to w. The
// returned func flushes buffered output.
func newLogger(cfg config.LoggingConfig, w io.Writer) (rowcache.Logger, func() error, error) {
	switch cfg.Driver {
	case "zap":
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(w), lvl)
		l := zap.New(core).Named("rowcache")
		return rczap.ZapLogger{L: l}, func() error { _ = l.Sync(); return nil }, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(lvl)
		return rclogrus.LogrusLogger{E: logrus.NewEntry(l)}, noop, nil
	case "zerolog":
		lvl, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
		return rczerolog.ZerologLogger{L: l}, noop, nil
	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, err
		}
		l := stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: lvl}))
		return rcslog.Logger{L: l}, noop, nil
	case "none", "":
		return rowcache.NopLogger{}, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown log driver %q", cfg.Driver)
}
