package model

import "time"

// CreateProjectRequest starts a new project in one of three creation modes.
type CreateProjectRequest struct {
	Mode        CreationMode `json:"mode" validate:"required,oneof=topic prompt narrations"`
	Topic       string       `json:"topic,omitempty" validate:"max=200"`
	Prompt      string       `json:"prompt,omitempty" validate:"max=4000"`
	Narrations  []string     `json:"narrations,omitempty" validate:"max=50,dive,min=1,max=2000"`
	Genre       string       `json:"genre,omitempty" validate:"max=50"`
	Language    Language     `json:"language,omitempty" validate:"omitempty,oneof=en tr fr"`
	Voice       string       `json:"voice,omitempty" validate:"max=100"`
	Orientation Orientation  `json:"orientation,omitempty" validate:"omitempty,oneof=landscape portrait"`
	SceneCount  int          `json:"sceneCount,omitempty" validate:"omitempty,min=1,max=50"`

	TextProvider   string `json:"textProvider,omitempty" validate:"max=50"`
	SpeechProvider string `json:"speechProvider,omitempty" validate:"max=50"`
	ImageProvider  string `json:"imageProvider,omitempty" validate:"max=50"`
}

// CreateProjectResponse is returned from POST /api/projects.
type CreateProjectResponse struct {
	Project *Project `json:"project"`
}

// GenerateResponse is returned from POST /api/projects/:id/generate.
type GenerateResponse struct {
	ProjectID string        `json:"projectId"`
	Status    ProjectStatus `json:"status"`
	Enqueued  bool          `json:"enqueued"`
}

// ProjectStatusResponse is returned from GET /api/projects/:id.
type ProjectStatusResponse struct {
	Project *Project `json:"project"`
}

// ScenesResponse is returned from GET /api/projects/:id/scenes.
type ScenesResponse struct {
	ProjectID string  `json:"projectId"`
	Scenes    []Scene `json:"scenes"`
}

// LogsResponse is returned from GET /api/projects/:id/logs.
type LogsResponse struct {
	ProjectID string     `json:"projectId"`
	Entries   []LogEntry `json:"entries"`
}

// Voice describes one speech-synthesis voice offered by the provider.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
}

// VoicesResponse is returned from GET /api/voices.
type VoicesResponse struct {
	Voices []Voice `json:"voices"`
}

// DownloadInfo points at a final artifact, either as a local file served by
// the API or as a presigned object-storage URL.
type DownloadInfo struct {
	LocalPath string
	URL       string
	ExpiresAt time.Time
}
