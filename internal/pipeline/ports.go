package pipeline

import (
	"context"

	"github.com/reelsmith/api/internal/model"
)

// Store persists projects, scenes and log entries.
type Store interface {
	Project(ctx context.Context, id string) (*model.Project, error)
	SaveProject(ctx context.Context, p *model.Project) error
	Scenes(ctx context.Context, projectID string) ([]model.Scene, error)
	CreateScenes(ctx context.Context, scenes []model.Scene) error
	UpdateScene(ctx context.Context, sceneID string, cols map[string]interface{}) error
	AppendLog(ctx context.Context, entry *model.LogEntry) error
}

// TextGenerator produces completions from an LLM. The provider hint
// selects a model when the caller asked for a specific one.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, providerHint string) (string, error)
}

// SpeechResult is what a synthesis call yields: the written audio file,
// its measured duration and, when the provider supplies them, per-word
// offsets in hns ticks relative to the start of the audio.
type SpeechResult struct {
	Path           string
	DurationMs     int64
	WordBoundaries model.WordBoundaries
}

// SpeechSynthesizer turns narration text into an audio file.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, input model.SpeechInput, voice string, outputPath string) (*SpeechResult, error)
	ListVoices(ctx context.Context) ([]model.Voice, error)
}

// ImageGenerator writes a generated image to outputPath and returns the
// final path.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, outputPath string, width, height int) (string, error)
}

// SceneRenderer turns a scene's image and audio into an animated clip,
// and clips into the final video. Width and height select the canvas
// for the project's orientation.
type SceneRenderer interface {
	RenderScene(ctx context.Context, scene *model.Scene, outputPath string, width, height int) (string, error)
	Concatenate(ctx context.Context, clipPaths []string, outputPath string) error
}

// SpeechQueue serializes synthesis batches process-wide. Enqueue returns
// a channel that yields the batch result and is then closed.
type SpeechQueue interface {
	Enqueue(key string, task func(ctx context.Context) error) <-chan error
}

// Notifier pushes progress to connected clients. Implementations must
// never block the pipeline.
type Notifier interface {
	NotifyLog(projectID string, entry model.LogEntry)
	NotifyStatus(projectID string, status model.ProjectStatus, stage string)
}

// Publisher uploads finished artifacts to object storage. A nil
// Publisher leaves projects local-only.
type Publisher interface {
	UploadFile(ctx context.Context, localPath string, key string) (string, error)
}
