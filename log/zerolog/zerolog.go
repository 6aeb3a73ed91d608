package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/rowcache"
)

var _ rowcache.Logger = ZerologLogger{}

type ZerologLogger struct{ L zerolog.Logger }

func (z ZerologLogger) Debug(msg string, f rowcache.Fields) { z.L.Debug().Fields(map[string]any(f)).Msg(msg) }
func (z ZerologLogger) Info(msg string, f rowcache.Fields)  { z.L.Info().Fields(map[string]any(f)).Msg(msg) }
func (z ZerologLogger) Warn(msg string, f rowcache.Fields)  { z.L.Warn().Fields(map[string]any(f)).Msg(msg) }
func (z ZerologLogger) Error(msg string, f rowcache.Fields) { z.L.Error().Fields(map[string]any(f)).Msg(msg) }
