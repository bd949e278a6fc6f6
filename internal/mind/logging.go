package mind

import (
	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/ai"
	"github.com/keshon/stream-companion/pkg/util"
)

// LogLLMCall logs the prompt right before a provider call. Debug level only.
func LogLLMCall(log zerolog.Logger, action string, id uint64, system string, history []ai.Message) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	preview := util.Truncate(system, 500)
	log.Debug().
		Str("action", action).
		Uint64("attempt", id).
		Int("messages", len(history)).
		Int("system_len", len(system)).
		Str("system_preview", preview).
		Msg("llm call")
	for i, m := range history {
		log.Debug().Int("idx", i).Str("role", m.Role).Int("len", len(m.Content)).Msg(util.Truncate(m.Content, 200))
	}
}
