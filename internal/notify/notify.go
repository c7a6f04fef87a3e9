package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/whispertype/whispertype/internal/logger"
)

const appTitle = "whispertype"

// Notifier shows desktop notifications. Notification failures are logged
// and swallowed; a missing notification must never interrupt dictation.
type Notifier struct {
	log     *logger.Logger
	enabled bool
}

// New creates a notifier
func New(enabled bool, log *logger.Logger) *Notifier {
	return &Notifier{log: log.Named("notify"), enabled: enabled}
}

// Info shows an informational notification
func (n *Notifier) Info(message string) {
	if !n.enabled {
		return
	}
	if err := beeep.Notify(appTitle, message, ""); err != nil {
		n.log.Warn("notification failed", logger.Error(err))
	}
}

// Error shows an error notification with the platform alert sound
func (n *Notifier) Error(message string) {
	if !n.enabled {
		return
	}
	if err := beeep.Alert(appTitle, message, ""); err != nil {
		n.log.Warn("alert notification failed", logger.Error(err))
	}
}

// Preview shows a truncated transcript preview so the user can decide
// whether to confirm typing
func (n *Notifier) Preview(text string) {
	const maxPreview = 120
	runes := []rune(text)
	if len(runes) > maxPreview {
		text = string(runes[:maxPreview]) + "…"
	}
	n.Info(text)
}
