// Package sink owns the notification display boundary. OS-level
// presentation is a deployment concern; the default sink records
// notifications in the structured log.
package sink

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/gntpd/internal/gntp"
)

// LogSink writes every displayed notification to the structured log.
type LogSink struct {
	Log zerolog.Logger
}

var _ gntp.Sink = (*LogSink)(nil)

// NewLogSink uses the global logger.
func NewLogSink() *LogSink {
	return &LogSink{Log: log.Logger}
}

func (s *LogSink) Display(n *gntp.Notification) error {
	s.Log.Info().
		Str("application", n.Application).
		Str("type", n.Type.Name).
		Str("display_name", n.Type.DisplayName).
		Bool("enabled", n.Type.Enabled).
		Str("id", n.ID).
		Str("title", n.Title).
		Str("text", n.Text).
		Int("resources", len(n.Resources)).
		Time("received", n.Received).
		Msg("display notification")
	return nil
}
