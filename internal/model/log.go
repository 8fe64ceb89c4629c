package model

import "time"

// LogEntry is one append-only line of a project's generation log. Entries
// are never mutated after creation.
type LogEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ProjectID string    `gorm:"index;type:varchar(64)" json:"projectId"`
	Level     LogLevel  `gorm:"type:varchar(8)" json:"level"`
	Code      string    `gorm:"type:varchar(64)" json:"code"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

func (LogEntry) TableName() string {
	return "log_entry"
}

// Log event codes emitted by the orchestrator.
const (
	LogCodeStageStart    = "stage_start"
	LogCodeStageSkip     = "stage_skip"
	LogCodeStageRetry    = "stage_retry"
	LogCodeStageComplete = "stage_complete"
	LogCodeStageFailed   = "stage_failed"
	LogCodeSubtitleMode  = "subtitle_mode"
	LogCodeStuckTimeout  = "stuck_timeout"
	LogCodePublished     = "published"
)
