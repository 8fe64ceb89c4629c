package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/subtitle"
	"github.com/reelsmith/api/internal/workspace"
)

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// --- metadata ---

func (o *Orchestrator) metadataDone(ctx context.Context, r *run) (bool, error) {
	return r.project.Title != "" && r.project.Workdir != "", nil
}

func (o *Orchestrator) runMetadata(ctx context.Context, r *run) error {
	p := r.project

	if p.Workdir == "" {
		name := p.Topic
		if name == "" {
			name = p.Prompt
		}
		if name == "" && len(p.Narrations) > 0 {
			name = p.Narrations[0]
		}
		ws, err := workspace.Create(o.dataDir, name)
		if err != nil {
			return err
		}
		p.Workdir = ws.Root
		r.ws = ws
		r.hasWS = true
	}

	if p.Title == "" {
		out, err := o.text.Generate(ctx, metadataPrompt(p), p.TextProvider)
		if err != nil {
			return err
		}
		meta, err := parseMetadata(out)
		if err != nil {
			return Transient("textgen", err)
		}
		p.Title = meta.Title
		p.Description = meta.Description
		p.Tags = meta.Tags
	}
	return nil
}

// --- narration ---

func (o *Orchestrator) narrationDone(ctx context.Context, r *run) (bool, error) {
	p := r.project
	if p.SceneCount <= 0 || len(r.scenes) != p.SceneCount {
		return false, nil
	}
	for i, sc := range r.scenes {
		if sc.Order != i+1 || strings.TrimSpace(sc.Narration) == "" {
			return false, nil
		}
	}
	return true, nil
}

func (o *Orchestrator) runNarration(ctx context.Context, r *run) error {
	p := r.project

	var texts []string
	if p.Mode == model.ModeNarrations {
		texts = p.Narrations
	} else {
		out, err := o.text.Generate(ctx, narrationsPrompt(p), p.TextProvider)
		if err != nil {
			return err
		}
		parsed, err := parseNarrations(out, p.SceneCount)
		if err != nil {
			return Transient("textgen", err)
		}
		texts = parsed
	}
	if len(texts) != p.SceneCount {
		return &PipelineInvariantError{Stage: "narration", Detail: "narration count does not match scene count"}
	}

	var created []model.Scene
	for i := 1; i <= p.SceneCount; i++ {
		sc := r.scene(i)
		if sc == nil {
			created = append(created, model.Scene{
				ID:        uuid.New().String(),
				ProjectID: p.ID,
				Order:     i,
				Narration: texts[i-1],
			})
			continue
		}
		if strings.TrimSpace(sc.Narration) == "" {
			sc.Narration = texts[i-1]
			if err := o.store.UpdateScene(ctx, sc.ID, map[string]interface{}{"narration": sc.Narration}); err != nil {
				return err
			}
		}
	}
	if len(created) > 0 {
		if err := o.store.CreateScenes(ctx, created); err != nil {
			return err
		}
		for i := range created {
			r.scenes = append(r.scenes, &created[i])
		}
		r.sorted()
	}
	return nil
}

// --- prompts ---

func (o *Orchestrator) promptsDone(ctx context.Context, r *run) (bool, error) {
	if r.project.Character == "" {
		return false, nil
	}
	for _, sc := range r.scenes {
		if strings.TrimSpace(sc.ImagePrompt) == "" {
			return false, nil
		}
	}
	return true, nil
}

func (o *Orchestrator) runPrompts(ctx context.Context, r *run) error {
	p := r.project

	if p.Character == "" {
		out, err := o.text.Generate(ctx, characterPrompt(p, r.scenes), p.TextProvider)
		if err != nil {
			return err
		}
		sheet := strings.TrimSpace(out)
		if sheet == "" {
			return Transient("textgen", errors.New("empty character sheet"))
		}
		p.Character = sheet
	}

	var pending []*model.Scene
	for _, sc := range r.scenes {
		if strings.TrimSpace(sc.ImagePrompt) == "" {
			pending = append(pending, sc)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	out, err := o.text.Generate(ctx, imagePromptsPrompt(p, pending), p.TextProvider)
	if err != nil {
		return err
	}
	prompts, err := parsePrompts(out, len(pending))
	if err != nil {
		return Transient("textgen", err)
	}
	for i, sc := range pending {
		sc.ImagePrompt = prompts[i]
		if err := o.store.UpdateScene(ctx, sc.ID, map[string]interface{}{"image_prompt": sc.ImagePrompt}); err != nil {
			return err
		}
	}
	return nil
}

// --- prosody ---

func (o *Orchestrator) prosodyDone(ctx context.Context, r *run) (bool, error) {
	for _, sc := range r.scenes {
		if len(sc.Prosody) == 0 || !sc.Animation.Valid() {
			return false, nil
		}
	}
	return len(r.scenes) > 0, nil
}

func (o *Orchestrator) runProsody(ctx context.Context, r *run) error {
	var pending []*model.Scene
	for _, sc := range r.scenes {
		if len(sc.Prosody) == 0 || !sc.Animation.Valid() {
			pending = append(pending, sc)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	out, err := o.text.Generate(ctx, prosodyPrompt(r.project, pending), r.project.TextProvider)
	if err != nil {
		return err
	}
	plans, err := parseProsodyPlans(out)
	if err != nil {
		return Transient("textgen", err)
	}

	for _, sc := range pending {
		entry, ok := plans[sc.Order]
		if ok && len(entry.Segments) > 0 {
			sc.Prosody = entry.Segments
		} else {
			// a scene the model skipped still gets a plan
			sc.Prosody = model.ProsodySegments{{Text: sc.Narration, Rate: "+0%", Volume: "+0%", Pitch: "+0%"}}
		}
		anim := entry.Animation
		if !anim.Valid() {
			anim = model.DefaultAnimationPlan()
		}
		sc.Animation = anim
		if err := o.store.UpdateScene(ctx, sc.ID, map[string]interface{}{
			"prosody":   sc.Prosody,
			"animation": sc.Animation,
		}); err != nil {
			return err
		}
	}
	return nil
}

// --- media ---

func (o *Orchestrator) mediaDone(ctx context.Context, r *run) (bool, error) {
	if !r.hasWS || len(r.scenes) == 0 {
		return false, nil
	}
	for _, sc := range r.scenes {
		if !fileExists(sc.ImagePath) || !fileExists(sc.AudioPath) || sc.DurationMs <= 0 || !sc.Timed() {
			return false, nil
		}
	}
	return true, nil
}

// runMedia lives in media.go.

// --- render ---

func (o *Orchestrator) renderDone(ctx context.Context, r *run) (bool, error) {
	return fileExists(r.project.VideoPath), nil
}

func (o *Orchestrator) runRender(ctx context.Context, r *run) error {
	width, height := o.canvas(r.project)
	clips := make([]string, 0, len(r.scenes))
	for _, sc := range r.scenes {
		out := r.ws.ClipFile(sc.Order)
		if !fileExists(out) {
			rendered, err := o.renderer.RenderScene(ctx, sc, out, width, height)
			if err != nil {
				return &StageError{Stage: "render", Scene: sc.Order, Err: err}
			}
			out = rendered
		}
		clips = append(clips, out)
	}

	videoPath := r.ws.VideoFile()
	if err := o.renderer.Concatenate(ctx, clips, videoPath); err != nil {
		return &StageError{Stage: "render", Err: err}
	}
	r.project.VideoPath = videoPath
	return nil
}

// --- subtitle ---

func (o *Orchestrator) subtitleDone(ctx context.Context, r *run) (bool, error) {
	return fileExists(r.project.SubtitlePath), nil
}

func (o *Orchestrator) runSubtitle(ctx context.Context, r *run) error {
	scenes := make([]model.Scene, len(r.scenes))
	for i, sc := range r.scenes {
		scenes[i] = *sc
	}
	mode, cues := subtitle.Build(scenes)
	path := r.ws.SubtitleFile()
	if err := subtitle.WriteSRTFile(path, cues); err != nil {
		return &StageError{Stage: "subtitle", Err: err}
	}
	r.project.SubtitlePath = path
	o.appendLog(ctx, r, model.LogLevelInfo, model.LogCodeSubtitleMode,
		"subtitles written in "+string(mode)+" mode")
	return nil
}

// --- publish ---

func (o *Orchestrator) publishDone(ctx context.Context, r *run) (bool, error) {
	if o.pub == nil {
		return false, nil
	}
	return r.project.VideoURL != "" && r.project.SubtitleURL != "", nil
}

func (o *Orchestrator) runPublish(ctx context.Context, r *run) error {
	p := r.project
	if !fileExists(p.VideoPath) {
		return &PipelineInvariantError{Stage: "publish", Detail: "final video missing"}
	}
	if !fileExists(p.SubtitlePath) {
		return &PipelineInvariantError{Stage: "publish", Detail: "subtitle file missing"}
	}
	if o.pub == nil {
		return nil
	}

	videoURL, err := o.pub.UploadFile(ctx, p.VideoPath, "videos/"+p.ID+"/final.mp4")
	if err != nil {
		return &StageError{Stage: "publish", Err: err}
	}
	subtitleURL, err := o.pub.UploadFile(ctx, p.SubtitlePath, "videos/"+p.ID+"/final.srt")
	if err != nil {
		return &StageError{Stage: "publish", Err: err}
	}
	p.VideoURL = videoURL
	p.SubtitleURL = subtitleURL
	o.appendLog(ctx, r, model.LogLevelInfo, model.LogCodePublished,
		"artifacts uploaded: "+videoURL)
	return nil
}
