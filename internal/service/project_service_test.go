package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/pipeline"
	"github.com/reelsmith/api/internal/store"
)

type stubStore struct {
	projects map[string]*model.Project
	created  []*model.Project
}

func newStubStore() *stubStore {
	return &stubStore{projects: make(map[string]*model.Project)}
}

func (s *stubStore) CreateProject(ctx context.Context, p *model.Project) error {
	s.projects[p.ID] = p
	s.created = append(s.created, p)
	return nil
}

func (s *stubStore) Project(ctx context.Context, id string) (*model.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubStore) Scenes(ctx context.Context, projectID string) ([]model.Scene, error) {
	return nil, nil
}

func (s *stubStore) Logs(ctx context.Context, projectID string) ([]model.LogEntry, error) {
	return nil, nil
}

type stubStorage struct {
	signErr error
}

func (s *stubStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	return "https://cdn.example/" + key, nil
}

func (s *stubStorage) UploadFile(ctx context.Context, localPath, key string) (string, error) {
	return "https://cdn.example/" + key, nil
}

func (s *stubStorage) Delete(ctx context.Context, key string) error { return nil }

func (s *stubStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "https://cdn.example/" + key + "?signed=1", nil
}

func (s *stubStorage) GetPublicURL(key string) string { return "https://cdn.example/" + key }

func TestCreateAppliesDefaults(t *testing.T) {
	st := newStubStore()
	svc := NewProjectService(st, nil, nil, nil, nil, 5, "en-US-AvaNeural")

	p, err := svc.Create(context.Background(), &model.CreateProjectRequest{
		Mode:  model.ModeTopic,
		Topic: "deep sea vents",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" {
		t.Error("project ID not assigned")
	}
	if p.Language != model.LanguageEN {
		t.Errorf("language = %s", p.Language)
	}
	if p.Orientation != model.OrientationLandscape {
		t.Errorf("orientation = %s", p.Orientation)
	}
	if p.Voice != "en-US-AvaNeural" {
		t.Errorf("voice = %s", p.Voice)
	}
	if p.SceneCount != 5 {
		t.Errorf("scene count = %d", p.SceneCount)
	}
	if p.Status != model.StatusCreated {
		t.Errorf("status = %s", p.Status)
	}
	if len(st.created) != 1 {
		t.Errorf("persisted %d projects", len(st.created))
	}
}

func TestCreateNarrationsModeDictatesSceneCount(t *testing.T) {
	svc := NewProjectService(newStubStore(), nil, nil, nil, nil, 5, "voice")

	p, err := svc.Create(context.Background(), &model.CreateProjectRequest{
		Mode:       model.ModeNarrations,
		Narrations: []string{"one", "two", "three"},
		SceneCount: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.SceneCount != 3 {
		t.Errorf("scene count = %d", p.SceneCount)
	}
}

func TestCreateModeValidation(t *testing.T) {
	svc := NewProjectService(newStubStore(), nil, nil, nil, nil, 5, "voice")

	cases := []struct {
		name  string
		req   model.CreateProjectRequest
		field string
	}{
		{"topic mode without topic", model.CreateProjectRequest{Mode: model.ModeTopic}, "topic"},
		{"prompt mode without prompt", model.CreateProjectRequest{Mode: model.ModePrompt}, "prompt"},
		{"narrations mode without narrations", model.CreateProjectRequest{Mode: model.ModeNarrations}, "narrations"},
		{"narrations scene count mismatch", model.CreateProjectRequest{
			Mode:       model.ModeNarrations,
			Narrations: []string{"a", "b"},
			SceneCount: 5,
		}, "sceneCount"},
		{"unknown mode", model.CreateProjectRequest{Mode: "remix"}, "mode"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &c.req)
			var verr *pipeline.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if verr.Field != c.field {
				t.Errorf("field = %s, want %s", verr.Field, c.field)
			}
		})
	}
}

func TestVideoDownloadRequiresCompletedProject(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusRendered, VideoPath: "/work/final.mp4"}
	svc := NewProjectService(st, nil, nil, nil, nil, 5, "voice")

	if _, err := svc.VideoDownload(context.Background(), "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestVideoDownloadSignsURLWhenStorageConfigured(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusCompleted, VideoPath: "/work/final.mp4"}
	svc := NewProjectService(st, nil, nil, nil, &stubStorage{}, 5, "voice")

	info, err := svc.VideoDownload(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(info.URL, "videos/p1/final.mp4") {
		t.Errorf("url = %s", info.URL)
	}
	if info.ExpiresAt.IsZero() {
		t.Error("expiry not set")
	}
}

func TestVideoDownloadFallsBackToLocalFile(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusCompleted, VideoPath: "/work/final.mp4"}

	// no storage configured
	svc := NewProjectService(st, nil, nil, nil, nil, 5, "voice")
	info, err := svc.VideoDownload(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if info.LocalPath != "/work/final.mp4" || info.URL != "" {
		t.Errorf("info = %+v", info)
	}

	// storage configured but signing fails
	svc = NewProjectService(st, nil, nil, nil, &stubStorage{signErr: fmt.Errorf("r2 down")}, 5, "voice")
	info, err = svc.VideoDownload(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if info.LocalPath != "/work/final.mp4" {
		t.Errorf("info = %+v", info)
	}
}

// stubEnqueuer returns the configured error for each call in order and
// succeeds once the list is exhausted.
type stubEnqueuer struct {
	errs  []error
	calls int
}

func (e *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	i := e.calls
	e.calls++
	if i < len(e.errs) && e.errs[i] != nil {
		return nil, e.errs[i]
	}
	return &asynq.TaskInfo{Queue: "pipeline", Type: task.Type()}, nil
}

type stubInspector struct {
	state   asynq.TaskState
	infoErr error
	deleted []string
}

func (i *stubInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	if i.infoErr != nil {
		return nil, i.infoErr
	}
	return &asynq.TaskInfo{Queue: queue, ID: id, State: i.state}, nil
}

func (i *stubInspector) DeleteTask(queue, id string) error {
	i.deleted = append(i.deleted, id)
	return nil
}

func TestTriggerGenerateEnqueues(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusCreated}
	enq := &stubEnqueuer{}
	svc := NewProjectService(st, enq, &stubInspector{}, nil, nil, 5, "voice")

	resp, err := svc.TriggerGenerate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Enqueued || enq.calls != 1 {
		t.Errorf("enqueued = %v, calls = %d", resp.Enqueued, enq.calls)
	}
}

func TestTriggerGenerateSkipsCompletedProject(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusCompleted}
	enq := &stubEnqueuer{}
	svc := NewProjectService(st, enq, &stubInspector{}, nil, nil, 5, "voice")

	resp, err := svc.TriggerGenerate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Enqueued || enq.calls != 0 {
		t.Errorf("enqueued = %v, calls = %d", resp.Enqueued, enq.calls)
	}
}

func TestTriggerGenerateDedupesRunningTask(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusNarrationReady}
	enq := &stubEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
	insp := &stubInspector{state: asynq.TaskStateActive}
	svc := NewProjectService(st, enq, insp, nil, nil, 5, "voice")

	resp, err := svc.TriggerGenerate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Enqueued {
		t.Error("enqueued alongside a running task")
	}
	if len(insp.deleted) != 0 {
		t.Errorf("deleted running task %v", insp.deleted)
	}
	if enq.calls != 1 {
		t.Errorf("enqueue calls = %d, want 1", enq.calls)
	}
}

func TestTriggerGenerateRetriggersFailedProject(t *testing.T) {
	// A run that ends in failure leaves its task archived under the same
	// task ID. Re-triggering must clear it and enqueue a fresh run.
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusFailed, FailedStage: "audio"}
	enq := &stubEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
	insp := &stubInspector{state: asynq.TaskStateArchived}
	svc := NewProjectService(st, enq, insp, nil, nil, 5, "voice")

	resp, err := svc.TriggerGenerate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Enqueued {
		t.Error("failed project was not re-enqueued")
	}
	if len(insp.deleted) != 1 || insp.deleted[0] != "pipeline:p1" {
		t.Errorf("deleted = %v, want [pipeline:p1]", insp.deleted)
	}
	if enq.calls != 2 {
		t.Errorf("enqueue calls = %d, want 2", enq.calls)
	}
}

func TestTriggerGenerateRetriggersCompletedTask(t *testing.T) {
	// Retention keeps the completed task around for a while; a partially
	// finished project must still be able to continue past it.
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusRendered}
	enq := &stubEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
	insp := &stubInspector{state: asynq.TaskStateCompleted}
	svc := NewProjectService(st, enq, insp, nil, nil, 5, "voice")

	resp, err := svc.TriggerGenerate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Enqueued || enq.calls != 2 {
		t.Errorf("enqueued = %v, calls = %d", resp.Enqueued, enq.calls)
	}
}

func TestTriggerGenerateConflictWithoutInspector(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusFailed}
	enq := &stubEnqueuer{errs: []error{asynq.ErrTaskIDConflict, asynq.ErrTaskIDConflict}}
	svc := NewProjectService(st, enq, nil, nil, nil, 5, "voice")

	resp, err := svc.TriggerGenerate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Enqueued {
		t.Error("enqueued without clearing the old task")
	}
}

func TestSubtitleDownloadUsesSubtitleKey(t *testing.T) {
	st := newStubStore()
	st.projects["p1"] = &model.Project{ID: "p1", Status: model.StatusCompleted, SubtitlePath: "/work/final.srt"}
	svc := NewProjectService(st, nil, nil, nil, &stubStorage{}, 5, "voice")

	info, err := svc.SubtitleDownload(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(info.URL, "videos/p1/final.srt") {
		t.Errorf("url = %s", info.URL)
	}
}
