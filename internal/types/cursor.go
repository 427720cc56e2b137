package types

import "time"

// CursorPosition is the per-repo high-water mark: the last upstream event
// id considered done for that repo.
type CursorPosition struct {
	Repo        string    `json:"repo"`
	LastEventID int64     `json:"last_event_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventLogEntry is the durable record of one processed event, keyed by the
// upstream's RemoteID for dedup.
type EventLogEntry struct {
	RemoteID      int64         `json:"remote_id"`
	Repo          string        `json:"repo"`
	EventType     string        `json:"event_type"`
	Action        string        `json:"action"`
	Summary       string        `json:"summary,omitempty"`
	HandlerName   string        `json:"handler_name,omitempty"`
	HandlerStatus HandlerStatus `json:"handler_status,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RepoSpec is one watched repository from the configuration file.
type RepoSpec struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}
