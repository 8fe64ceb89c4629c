package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringList is a JSON-encoded string slice column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}

// Project is one narrated-video generation job. It is exclusively owned and
// transitioned by the pipeline orchestrator.
type Project struct {
	ID          string       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Mode        CreationMode `gorm:"type:varchar(16)" json:"mode"`
	Topic       string       `json:"topic,omitempty"`
	Prompt      string       `gorm:"type:text" json:"prompt,omitempty"`
	Narrations  StringList   `gorm:"type:json" json:"narrations,omitempty"`
	Genre       string       `json:"genre,omitempty"`
	Language    Language     `gorm:"type:varchar(8)" json:"language"`
	Voice       string       `json:"voice"`
	Orientation Orientation  `gorm:"type:varchar(16)" json:"orientation"`
	SceneCount  int          `json:"sceneCount"`

	TextProvider   string `json:"textProvider,omitempty"`
	SpeechProvider string `json:"speechProvider,omitempty"`
	ImageProvider  string `json:"imageProvider,omitempty"`

	Title       string     `json:"title,omitempty"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Tags        StringList `gorm:"type:json" json:"tags,omitempty"`
	Character   string     `gorm:"type:text" json:"character,omitempty"`

	Status      ProjectStatus `gorm:"type:varchar(32);index" json:"status"`
	FailedStage string        `json:"failedStage,omitempty"`

	Workdir      string `json:"-"`
	VideoPath    string `json:"-"`
	SubtitlePath string `json:"-"`
	VideoURL     string `json:"videoUrl,omitempty"`
	SubtitleURL  string `json:"subtitleUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "project"
}
