package e2e

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/reelsmith/api/internal/model"
)

func TestCreateProject_TopicMode(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/projects",
		`{"mode":"topic","topic":"the deep ocean"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusCreated)

	body := parseJSON(t, resp)
	project, ok := body["project"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'project' object, got %v", body)
	}
	if project["id"] == "" {
		t.Error("expected project id")
	}
	if project["status"] != "created" {
		t.Errorf("expected status 'created', got %v", project["status"])
	}
	if project["orientation"] != "landscape" {
		t.Errorf("expected default orientation, got %v", project["orientation"])
	}
	if project["sceneCount"] != float64(5) {
		t.Errorf("expected default scene count, got %v", project["sceneCount"])
	}
}

func TestCreateProject_NarrationsMode(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/projects",
		`{"mode":"narrations","narrations":["First scene.","Second scene."]}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusCreated)

	body := parseJSON(t, resp)
	project := body["project"].(map[string]interface{})
	if project["sceneCount"] != float64(2) {
		t.Errorf("expected scene count from narrations, got %v", project["sceneCount"])
	}
}

func TestCreateProject_ValidationErrors(t *testing.T) {
	ta := setupApp(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing mode", `{}`},
		{"unknown mode", `{"mode":"remix"}`},
		{"topic mode without topic", `{"mode":"topic"}`},
		{"prompt mode without prompt", `{"mode":"prompt"}`},
		{"narrations mode without narrations", `{"mode":"narrations"}`},
		{"scene count mismatch", `{"mode":"narrations","narrations":["a"],"sceneCount":3}`},
		{"bad orientation", `{"mode":"topic","topic":"x","orientation":"diagonal"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, err := doRequest(ta.app, http.MethodPost, "/api/projects", c.body, nil)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, http.StatusBadRequest)

			body := parseJSON(t, resp)
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected 'error' object, got %v", body)
			}
			if errObj["code"] != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %v", errObj["code"])
			}
		})
	}
}

func TestProjectStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/projects/nope", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)

	body := parseJSON(t, resp)
	errObj := body["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", errObj["code"])
	}
}

func TestProjectScenesAndLogs(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/projects",
		`{"mode":"topic","topic":"volcanoes"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	created := parseJSON(t, resp)
	id := created["project"].(map[string]interface{})["id"].(string)

	ta.store.scenes[id] = []model.Scene{
		{ID: "s1", ProjectID: id, Order: 1, Narration: "Magma rises."},
	}
	ta.store.logs[id] = []model.LogEntry{
		{ProjectID: id, Code: model.LogCodeStageStart, Message: "stage narration started"},
	}

	resp, err = doRequest(ta.app, http.MethodGet, fmt.Sprintf("/api/projects/%s/scenes", id), "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	scenes := parseJSON(t, resp)["scenes"].([]interface{})
	if len(scenes) != 1 {
		t.Errorf("expected 1 scene, got %d", len(scenes))
	}

	resp, err = doRequest(ta.app, http.MethodGet, fmt.Sprintf("/api/projects/%s/logs", id), "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	entries := parseJSON(t, resp)["entries"].([]interface{})
	if len(entries) != 1 {
		t.Errorf("expected 1 log entry, got %d", len(entries))
	}
}

func TestVideoDownload_NotCompleted(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/projects",
		`{"mode":"topic","topic":"glaciers"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	id := parseJSON(t, resp)["project"].(map[string]interface{})["id"].(string)

	// the project exists but has produced no video yet
	resp, err = doRequest(ta.app, http.MethodGet, fmt.Sprintf("/api/projects/%s/video", id), "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestVoices(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/voices", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	voices := parseJSON(t, resp)["voices"].([]interface{})
	if len(voices) != 2 {
		t.Errorf("expected 2 voices, got %d", len(voices))
	}
	first := voices[0].(map[string]interface{})
	if first["name"] != "en-US-AvaNeural" {
		t.Errorf("unexpected voice: %v", first)
	}
}
