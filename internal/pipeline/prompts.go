package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reelsmith/api/internal/model"
)

// languageName maps a language code to the name used in LLM prompts.
func languageName(lang model.Language) string {
	switch lang {
	case model.LanguageTR:
		return "Turkish"
	case model.LanguageFR:
		return "French"
	default:
		return "English"
	}
}

func metadataPrompt(p *model.Project) string {
	subject := p.Topic
	if subject == "" {
		subject = p.Prompt
	}
	if subject == "" && len(p.Narrations) > 0 {
		subject = p.Narrations[0]
	}

	return fmt.Sprintf(`You are writing publishing metadata for a short narrated video.
Subject: %s
Genre: %s
Language: %s

Produce a concise title (max 80 characters), a one-paragraph description
and 5-10 short topical tags.

Output as JSON: {"title": "...", "description": "...", "tags": ["tag1", "tag2"]}
Do not include any text outside the JSON structure.`,
		subject, p.Genre, languageName(p.Language))
}

type metadataResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func parseMetadata(response string) (*metadataResult, error) {
	var result metadataResult
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if result.Title == "" {
		return nil, fmt.Errorf("no title in response")
	}
	return &result, nil
}

func narrationsPrompt(p *model.Project) string {
	var source string
	switch p.Mode {
	case model.ModePrompt:
		source = "Script brief:\n" + p.Prompt
	default:
		source = "Topic: " + p.Topic
	}

	return fmt.Sprintf(`Write the narration for a short %s video in %s.
%s

Split the narration into exactly %d scenes. Each scene is one spoken
passage of 1-3 sentences that stands alone when read aloud. The scenes
together must tell one continuous story with a clear arc.

Output as JSON: {"narrations": ["scene 1 text", "scene 2 text"]}
The array must contain exactly %d entries. Do not include any text
outside the JSON structure.`,
		p.Genre, languageName(p.Language), source, p.SceneCount, p.SceneCount)
}

func parseNarrations(response string, want int) ([]string, error) {
	var result struct {
		Narrations []string `json:"narrations"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(result.Narrations) != want {
		return nil, fmt.Errorf("expected %d narrations, got %d", want, len(result.Narrations))
	}
	for i, n := range result.Narrations {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("narration %d is empty", i+1)
		}
	}
	return result.Narrations, nil
}

func characterPrompt(p *model.Project, scenes []*model.Scene) string {
	var b strings.Builder
	for _, sc := range scenes {
		fmt.Fprintf(&b, "Scene %d: %s\n", sc.Order, sc.Narration)
	}

	return fmt.Sprintf(`The following scenes form one narrated video.

%s
Write a single short "character sheet" sentence describing the visual
style and any recurring character so every generated image stays
consistent: appearance, clothing, art style, palette. One sentence,
no lists, no JSON.`, b.String())
}

func imagePromptsPrompt(p *model.Project, scenes []*model.Scene) string {
	var b strings.Builder
	for _, sc := range scenes {
		fmt.Fprintf(&b, "Scene %d: %s\n", sc.Order, sc.Narration)
	}

	character := ""
	if p.Character != "" {
		character = "\nStyle and character sheet (apply to every prompt): " + p.Character
	}

	return fmt.Sprintf(`Write one image generation prompt per scene below.%s

%s
Each prompt describes a single still image illustrating that scene:
subject, setting, lighting, mood. Concrete and visual, no camera jargon,
no text overlays.

Output as JSON: {"prompts": ["prompt for scene 1", "prompt for scene 2"]}
The array must contain exactly %d entries, in scene order. Do not
include any text outside the JSON structure.`,
		character, b.String(), len(scenes))
}

func parsePrompts(response string, want int) ([]string, error) {
	var result struct {
		Prompts []string `json:"prompts"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(result.Prompts) != want {
		return nil, fmt.Errorf("expected %d prompts, got %d", want, len(result.Prompts))
	}
	return result.Prompts, nil
}

func prosodyPrompt(p *model.Project, scenes []*model.Scene) string {
	var b strings.Builder
	for _, sc := range scenes {
		fmt.Fprintf(&b, "Scene %d: %s\n", sc.Order, sc.Narration)
	}

	return fmt.Sprintf(`Plan the delivery and animation for each scene of a narrated video.

%s
For each scene produce:
- "segments": the narration split into spoken segments. The segment
  texts concatenated in order must reproduce the narration exactly.
  Each segment carries "rate", "volume" and "pitch" as percentage
  offsets like "+5%%", "-10%%" or "+0%%".
- "animation": {"in": one of [none, fade_in], "show": one of
  [none, zoom_in, zoom_out, pan_left, pan_right], "out": one of
  [none, fade_out]}. Pick motion that suits the scene's mood.

Output as JSON:
{"scenes": [{"order": 1, "segments": [{"text": "...", "rate": "+0%%", "volume": "+0%%", "pitch": "+0%%"}], "animation": {"in": "fade_in", "show": "zoom_in", "out": "fade_out"}}]}
Include every scene listed above. Do not include any text outside the
JSON structure.`, b.String())
}

type prosodyPlanEntry struct {
	Order     int                    `json:"order"`
	Segments  []model.ProsodySegment `json:"segments"`
	Animation model.AnimationPlan    `json:"animation"`
}

func parseProsodyPlans(response string) (map[int]prosodyPlanEntry, error) {
	var result struct {
		Scenes []prosodyPlanEntry `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(result.Scenes) == 0 {
		return nil, fmt.Errorf("no scenes in response")
	}
	plans := make(map[int]prosodyPlanEntry, len(result.Scenes))
	for _, entry := range result.Scenes {
		plans[entry.Order] = entry
	}
	return plans, nil
}

// extractJSON pulls the JSON object out of a response that may carry
// extra prose around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}
