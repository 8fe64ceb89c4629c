package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/reelsmith/api/internal/client"
	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/pipeline"
	"github.com/reelsmith/api/internal/store"
)

const (
	// TaskTypePipelineAdvance drives one project through the pipeline.
	TaskTypePipelineAdvance = "pipeline:advance"

	pipelineQueue = "pipeline"

	signedURLExpiry = 1 * time.Hour
)

func pipelineTaskID(projectID string) string {
	return "pipeline:" + projectID
}

// PipelineTaskPayload is the asynq payload for pipeline tasks.
type PipelineTaskPayload struct {
	ProjectID string `json:"projectId"`
}

// ProjectStore is the persistence surface the project service needs.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	Project(ctx context.Context, id string) (*model.Project, error)
	Scenes(ctx context.Context, projectID string) ([]model.Scene, error)
	Logs(ctx context.Context, projectID string) ([]model.LogEntry, error)
}

// TaskEnqueuer is the slice of *asynq.Client the service uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector looks up and removes pipeline tasks. An archived run keeps
// its task key, so without it a failed project could never be retriggered.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// ProjectService handles project creation, generation triggers and reads.
type ProjectService struct {
	store       ProjectStore
	asynqClient TaskEnqueuer
	inspector   TaskInspector
	speech      pipeline.SpeechSynthesizer
	storage     client.StorageClient

	defaultScenes int
	defaultVoice  string
}

func NewProjectService(st ProjectStore, asynqClient TaskEnqueuer, inspector TaskInspector, speech pipeline.SpeechSynthesizer, storage client.StorageClient, defaultScenes int, defaultVoice string) *ProjectService {
	if defaultScenes <= 0 {
		defaultScenes = 5
	}
	return &ProjectService{
		store:         st,
		asynqClient:   asynqClient,
		inspector:     inspector,
		speech:        speech,
		storage:       storage,
		defaultScenes: defaultScenes,
		defaultVoice:  defaultVoice,
	}
}

// Create validates the request against its creation mode and persists a
// new project in created status. No generation work starts here.
func (s *ProjectService) Create(ctx context.Context, req *model.CreateProjectRequest) (*model.Project, error) {
	if err := validateMode(req); err != nil {
		return nil, err
	}

	p := &model.Project{
		ID:          uuid.New().String(),
		Mode:        req.Mode,
		Topic:       req.Topic,
		Prompt:      req.Prompt,
		Narrations:  req.Narrations,
		Genre:       req.Genre,
		Language:    req.Language,
		Voice:       req.Voice,
		Orientation: req.Orientation,
		SceneCount:  req.SceneCount,

		TextProvider:   req.TextProvider,
		SpeechProvider: req.SpeechProvider,
		ImageProvider:  req.ImageProvider,

		Status: model.StatusCreated,
	}
	if p.Language == "" {
		p.Language = model.LanguageEN
	}
	if p.Orientation == "" {
		p.Orientation = model.OrientationLandscape
	}
	if p.Voice == "" {
		p.Voice = s.defaultVoice
	}
	if p.Mode == model.ModeNarrations {
		// scene count is dictated by the provided narrations
		p.SceneCount = len(p.Narrations)
	} else if p.SceneCount == 0 {
		p.SceneCount = s.defaultScenes
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func validateMode(req *model.CreateProjectRequest) error {
	switch req.Mode {
	case model.ModeTopic:
		if req.Topic == "" {
			return &pipeline.ValidationError{Field: "topic", Message: "required in topic mode"}
		}
	case model.ModePrompt:
		if req.Prompt == "" {
			return &pipeline.ValidationError{Field: "prompt", Message: "required in prompt mode"}
		}
	case model.ModeNarrations:
		if len(req.Narrations) == 0 {
			return &pipeline.ValidationError{Field: "narrations", Message: "required in narrations mode"}
		}
		if req.SceneCount != 0 && req.SceneCount != len(req.Narrations) {
			return &pipeline.ValidationError{Field: "sceneCount", Message: "must match the number of narrations"}
		}
	default:
		return &pipeline.ValidationError{Field: "mode", Message: "unknown creation mode"}
	}
	return nil
}

// TriggerGenerate enqueues a pipeline run for the project. The task ID is
// derived from the project ID, so a project already queued or running is
// not enqueued twice; the call then reports Enqueued false. A task left
// behind by a finished run (completed, or archived after a failure) is
// deleted first so the project can be retriggered and resume.
func (s *ProjectService) TriggerGenerate(ctx context.Context, projectID string) (*model.GenerateResponse, error) {
	p, err := s.store.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.StatusCompleted {
		return &model.GenerateResponse{ProjectID: p.ID, Status: p.Status, Enqueued: false}, nil
	}

	payload, err := json.Marshal(PipelineTaskPayload{ProjectID: p.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	task := asynq.NewTask(TaskTypePipelineAdvance, payload)

	_, err = s.enqueuePipeline(ctx, task, p.ID)
	if errors.Is(err, asynq.ErrTaskIDConflict) && s.removeFinishedTask(p.ID) {
		_, err = s.enqueuePipeline(ctx, task, p.ID)
	}
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return &model.GenerateResponse{ProjectID: p.ID, Status: p.Status, Enqueued: false}, nil
		}
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.GenerateResponse{ProjectID: p.ID, Status: p.Status, Enqueued: true}, nil
}

func (s *ProjectService) enqueuePipeline(ctx context.Context, task *asynq.Task, projectID string) (*asynq.TaskInfo, error) {
	return s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(pipelineQueue),
		asynq.TaskID(pipelineTaskID(projectID)),
		asynq.Retention(24*time.Hour),
	)
}

// removeFinishedTask deletes the project's pipeline task if it is no longer
// runnable. Pending, active, scheduled and retrying tasks are left alone.
func (s *ProjectService) removeFinishedTask(projectID string) bool {
	if s.inspector == nil {
		return false
	}
	info, err := s.inspector.GetTaskInfo(pipelineQueue, pipelineTaskID(projectID))
	if err != nil {
		return false
	}
	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		return s.inspector.DeleteTask(pipelineQueue, pipelineTaskID(projectID)) == nil
	default:
		return false
	}
}

// GetProject returns the project with its current status.
func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	return s.store.Project(ctx, projectID)
}

// GetScenes returns the project's scenes in timeline order.
func (s *ProjectService) GetScenes(ctx context.Context, projectID string) (*model.ScenesResponse, error) {
	if _, err := s.store.Project(ctx, projectID); err != nil {
		return nil, err
	}
	scenes, err := s.store.Scenes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &model.ScenesResponse{ProjectID: projectID, Scenes: scenes}, nil
}

// GetLogs returns the project's generation log, oldest first.
func (s *ProjectService) GetLogs(ctx context.Context, projectID string) (*model.LogsResponse, error) {
	if _, err := s.store.Project(ctx, projectID); err != nil {
		return nil, err
	}
	entries, err := s.store.Logs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &model.LogsResponse{ProjectID: projectID, Entries: entries}, nil
}

// ListVoices proxies the speech provider's voice catalog.
func (s *ProjectService) ListVoices(ctx context.Context) (*model.VoicesResponse, error) {
	voices, err := s.speech.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	return &model.VoicesResponse{Voices: voices}, nil
}

// VideoDownload resolves where the final video can be fetched from:
// a presigned object-storage URL when publishing is configured, the
// local file otherwise.
func (s *ProjectService) VideoDownload(ctx context.Context, projectID string) (*model.DownloadInfo, error) {
	p, err := s.completedProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.download(ctx, p.VideoPath, "videos/"+p.ID+"/final.mp4")
}

// SubtitleDownload resolves the final subtitle file.
func (s *ProjectService) SubtitleDownload(ctx context.Context, projectID string) (*model.DownloadInfo, error) {
	p, err := s.completedProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.download(ctx, p.SubtitlePath, "videos/"+p.ID+"/final.srt")
}

func (s *ProjectService) completedProject(ctx context.Context, projectID string) (*model.Project, error) {
	p, err := s.store.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.StatusCompleted {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *ProjectService) download(ctx context.Context, localPath, key string) (*model.DownloadInfo, error) {
	if s.storage != nil {
		url, err := s.storage.GetSignedURL(ctx, key, signedURLExpiry)
		if err == nil {
			return &model.DownloadInfo{URL: url, ExpiresAt: time.Now().Add(signedURLExpiry)}, nil
		}
	}
	if localPath == "" {
		return nil, store.ErrNotFound
	}
	return &model.DownloadInfo{LocalPath: localPath}, nil
}
