package composer

import "time"

// Server events pushed to clients watching a composer.
const (
	EventProgress        = "progress"
	EventAttachmentAdded = "attachment_added"
	EventUploadFailed    = "upload_failed"
	EventWarning         = "warning"
	EventPollInterval    = "poll_interval"
	EventStatusCleared   = "status_cleared"
	EventReload          = "reload"
	EventPong            = "pong"
	EventError           = "error"
)

// Event is a real-time notification for one composer.
type Event struct {
	Type       string      `json:"type"`
	ComposerID string      `json:"composer_id"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Emitter delivers events to whoever watches a composer.
type Emitter interface {
	Emit(composerID string, ev *Event)
}

type nopEmitter struct{}

func (nopEmitter) Emit(string, *Event) {}

func pollPayload(d time.Duration) map[string]int64 {
	return map[string]int64{"interval_ms": d.Milliseconds()}
}
