package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelsmith/api/internal/handler"
	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/pipeline"
	"github.com/reelsmith/api/internal/service"
	"github.com/reelsmith/api/internal/store"
)

// memStore is an in-memory ProjectStore so handler tests need no database.
type memStore struct {
	mu       sync.Mutex
	projects map[string]*model.Project
	scenes   map[string][]model.Scene
	logs     map[string][]model.LogEntry
}

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[string]*model.Project),
		scenes:   make(map[string][]model.Scene),
		logs:     make(map[string][]model.LogEntry),
	}
}

func (s *memStore) CreateProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *memStore) Project(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) Scenes(ctx context.Context, projectID string) ([]model.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenes[projectID], nil
}

func (s *memStore) Logs(ctx context.Context, projectID string) ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs[projectID], nil
}

// stubSpeech serves the voice catalog without a speech provider.
type stubSpeech struct{}

func (stubSpeech) Synthesize(ctx context.Context, input model.SpeechInput, voice, outputPath string) (*pipeline.SpeechResult, error) {
	return &pipeline.SpeechResult{Path: outputPath, DurationMs: 1000}, nil
}

func (stubSpeech) ListVoices(ctx context.Context) ([]model.Voice, error) {
	return []model.Voice{
		{Name: "en-US-AvaNeural", Language: "en-US", Gender: "Female"},
		{Name: "tr-TR-EmelNeural", Language: "tr-TR", Gender: "Female"},
	}, nil
}

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *memStore
}

// setupApp creates a Fiber app with the same routes as main.go, backed by
// an in-memory store. No Redis, database or external provider is needed.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	st := newMemStore()
	validate := validator.New()

	// nil asynq client: generate is exercised separately, not here
	projectService := service.NewProjectService(st, nil, nil, stubSpeech{}, nil, 5, "en-US-AvaNeural")
	projectHandler := handler.NewProjectHandler(projectService, validate)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"textgen": false,
				"speech":  false,
				"image":   false,
				"r2":      false,
			},
		})
	})

	api := app.Group("/api")

	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Post("/:id/generate", projectHandler.Generate)
	projects.Get("/:id", projectHandler.Status)
	projects.Get("/:id/scenes", projectHandler.Scenes)
	projects.Get("/:id/logs", projectHandler.Logs)
	projects.Get("/:id/video", projectHandler.Video)
	projects.Get("/:id/subtitles", projectHandler.Subtitles)

	api.Get("/voices", projectHandler.Voices)

	return &testApp{app: app, store: st}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
