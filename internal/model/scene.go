package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProsodySegment is a narration sub-span carrying independent speech
// rate/volume/pitch. Concatenating Text across a scene's segments must
// reconstitute the scene's narration.
type ProsodySegment struct {
	Text   string `json:"text"`
	Rate   string `json:"rate,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pitch  string `json:"pitch,omitempty"`
}

type ProsodySegments []ProsodySegment

func (p ProsodySegments) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal([]ProsodySegment{})
	}
	return json.Marshal(p)
}

func (p *ProsodySegments) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, p)
}

// AnimationPlan selects the entrance, show and exit animation for one scene.
type AnimationPlan struct {
	In   Entrance   `json:"in"`
	Show ShowMotion `json:"show"`
	Out  Exit       `json:"out"`
}

// Valid reports whether every field holds a known variant.
func (a AnimationPlan) Valid() bool {
	in, show, out := false, false, false
	for _, v := range ValidEntrances {
		if a.In == v {
			in = true
		}
	}
	for _, v := range ValidShows {
		if a.Show == v {
			show = true
		}
	}
	for _, v := range ValidExits {
		if a.Out == v {
			out = true
		}
	}
	return in && show && out
}

// DefaultAnimationPlan is used when the planning stage cannot produce a
// usable plan for a scene.
func DefaultAnimationPlan() AnimationPlan {
	return AnimationPlan{In: EntranceFade, Show: ShowZoomIn, Out: ExitFade}
}

func (a AnimationPlan) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AnimationPlan) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, a)
}

// WordBoundary is a provider-supplied word timing in hundred-nanosecond
// ticks, relative to the start of its scene's audio.
type WordBoundary struct {
	Text        string `json:"text"`
	OffsetHns   int64  `json:"offsetHns"`
	DurationHns int64  `json:"durationHns"`
}

type WordBoundaries []WordBoundary

func (w WordBoundaries) Value() (driver.Value, error) {
	if w == nil {
		return json.Marshal([]WordBoundary{})
	}
	return json.Marshal(w)
}

func (w *WordBoundaries) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, w)
}

// Scene is one unit of narration + image + audio + animation plan, ordered
// within a project. Rows are created in full during the narration stage;
// later stages only fill in columns.
type Scene struct {
	ID        string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID string `gorm:"index;type:varchar(64)" json:"projectId"`
	Order     int    `gorm:"column:scene_order;index" json:"order"`

	Narration   string          `gorm:"type:text" json:"narration"`
	ImagePrompt string          `gorm:"type:text" json:"imagePrompt,omitempty"`
	Prosody     ProsodySegments `gorm:"type:json" json:"prosody,omitempty"`
	Animation   AnimationPlan   `gorm:"type:json" json:"animation"`

	ImagePath  string `json:"imagePath,omitempty"`
	AudioPath  string `json:"audioPath,omitempty"`
	DurationMs int64  `json:"durationMs"`

	StartTimeMs int64 `json:"startTimeMs"`
	EndTimeMs   int64 `json:"endTimeMs"`

	WordBoundaries WordBoundaries `gorm:"type:json" json:"wordBoundaries,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Scene) TableName() string {
	return "scene"
}

// Timed reports whether start/end times were already assigned.
func (s *Scene) Timed() bool {
	return s.EndTimeMs > s.StartTimeMs || (s.StartTimeMs == 0 && s.EndTimeMs > 0)
}

// SpeechInput is the synthesis input for one scene: either structured
// prosody segments or plain narration text, decided once when the prosody
// plan is read, never at the synthesis call site.
type SpeechInput struct {
	Segments []ProsodySegment
	Plain    string
}

// Structured reports whether the prosody variant was chosen.
func (in SpeechInput) Structured() bool {
	return len(in.Segments) > 0
}

// SpeechInput picks the synthesis variant for the scene. The prosody plan
// is used only when its segment texts reconstitute the narration; anything
// else falls back to plain text.
func (s *Scene) SpeechInput() SpeechInput {
	if len(s.Prosody) == 0 {
		return SpeechInput{Plain: s.Narration}
	}
	var b strings.Builder
	for _, seg := range s.Prosody {
		b.WriteString(seg.Text)
	}
	joined := normalizeSpaces(b.String())
	if joined != normalizeSpaces(s.Narration) {
		return SpeechInput{Plain: s.Narration}
	}
	return SpeechInput{Segments: s.Prosody}
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
