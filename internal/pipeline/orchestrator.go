package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/workspace"
)

// Options configures an Orchestrator. Store, Text, Speech, Images,
// Renderer and SpeechQueue are required; Publisher and Notifier may be
// nil.
type Options struct {
	Store       Store
	Text        TextGenerator
	Speech      SpeechSynthesizer
	Images      ImageGenerator
	Renderer    SceneRenderer
	SpeechQueue SpeechQueue
	Publisher   Publisher
	Notifier    Notifier

	DataDir      string
	CanvasWidth  int
	CanvasHeight int
	ImageWorkers int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	DefaultVoice   string
}

// Orchestrator owns project state transitions. Each call to Advance
// drives one project as far forward as it can go; every stage checks
// its own artifacts first, so re-running a project after a crash or a
// failure resumes exactly where work stopped.
type Orchestrator struct {
	store    Store
	text     TextGenerator
	speech   SpeechSynthesizer
	images   ImageGenerator
	renderer SceneRenderer
	queue    SpeechQueue
	pub      Publisher
	notifier Notifier

	dataDir      string
	canvasWidth  int
	canvasHeight int
	imageWorkers int

	retryAttempts  int
	retryBaseDelay time.Duration
	defaultVoice   string
}

func New(opts Options) *Orchestrator {
	if opts.ImageWorkers <= 0 {
		opts.ImageWorkers = 4
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}
	if opts.CanvasWidth <= 0 {
		opts.CanvasWidth = 1920
	}
	if opts.CanvasHeight <= 0 {
		opts.CanvasHeight = 1080
	}
	return &Orchestrator{
		store:          opts.Store,
		text:           opts.Text,
		speech:         opts.Speech,
		images:         opts.Images,
		renderer:       opts.Renderer,
		queue:          opts.SpeechQueue,
		pub:            opts.Publisher,
		notifier:       opts.Notifier,
		dataDir:        opts.DataDir,
		canvasWidth:    opts.CanvasWidth,
		canvasHeight:   opts.CanvasHeight,
		imageWorkers:   opts.ImageWorkers,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		defaultVoice:   opts.DefaultVoice,
	}
}

// run carries the mutable state of one Advance call.
type run struct {
	project *model.Project
	scenes  []*model.Scene
	ws      workspace.Dir
	hasWS   bool
}

func (r *run) scene(order int) *model.Scene {
	for _, sc := range r.scenes {
		if sc.Order == order {
			return sc
		}
	}
	return nil
}

func (r *run) sorted() {
	sort.Slice(r.scenes, func(i, j int) bool { return r.scenes[i].Order < r.scenes[j].Order })
}

// stage couples a completion check with an executor. done inspects
// persisted artifacts only, so a stage whose work survived a crash is
// skipped on the next Advance.
type stage struct {
	name   string
	status model.ProjectStatus
	done   func(ctx context.Context, r *run) (bool, error)
	exec   func(ctx context.Context, r *run) error
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{"metadata", model.StatusMetadataReady, o.metadataDone, o.runMetadata},
		{"narration", model.StatusNarrationReady, o.narrationDone, o.runNarration},
		{"prompts", model.StatusPromptsReady, o.promptsDone, o.runPrompts},
		{"prosody", model.StatusProsodyPlanReady, o.prosodyDone, o.runProsody},
		{"media", model.StatusMediaReady, o.mediaDone, o.runMedia},
		{"render", model.StatusRendered, o.renderDone, o.runRender},
		{"subtitle", model.StatusSubtitled, o.subtitleDone, o.runSubtitle},
		{"publish", model.StatusCompleted, o.publishDone, o.runPublish},
	}
}

func statusRank(s model.ProjectStatus) int {
	switch s {
	case model.StatusMetadataReady:
		return 1
	case model.StatusNarrationReady:
		return 2
	case model.StatusPromptsReady:
		return 3
	case model.StatusProsodyPlanReady:
		return 4
	case model.StatusMediaReady:
		return 5
	case model.StatusRendered:
		return 6
	case model.StatusSubtitled:
		return 7
	case model.StatusCompleted:
		return 8
	default:
		// created and failed both restart the walk from the top
		return 0
	}
}

// Advance drives the project through every remaining stage. Completed
// projects return immediately; failed projects resume from the stage
// whose artifacts are missing.
func (o *Orchestrator) Advance(ctx context.Context, projectID string) error {
	p, err := o.store.Project(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project %s: %w", projectID, err)
	}
	if p.Status == model.StatusCompleted {
		return nil
	}

	stored, err := o.store.Scenes(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load scenes %s: %w", projectID, err)
	}
	r := &run{project: p}
	for i := range stored {
		r.scenes = append(r.scenes, &stored[i])
	}
	r.sorted()

	if p.Workdir != "" {
		ws, err := workspace.Open(p.Workdir)
		if err != nil {
			return o.fail(ctx, r, "metadata", err)
		}
		r.ws = ws
		r.hasWS = true
	}

	for _, st := range o.stages() {
		ok, err := st.done(ctx, r)
		if err != nil {
			return o.fail(ctx, r, st.name, err)
		}
		if ok {
			if err := o.catchUp(ctx, r, st); err != nil {
				return err
			}
			continue
		}

		o.appendLog(ctx, r, model.LogLevelInfo, model.LogCodeStageStart,
			fmt.Sprintf("stage %s started", st.name))
		if err := o.runWithRetry(ctx, r, st); err != nil {
			return o.fail(ctx, r, st.name, err)
		}
		p.Status = st.status
		p.FailedStage = ""
		if err := o.store.SaveProject(ctx, p); err != nil {
			return fmt.Errorf("save project %s: %w", p.ID, err)
		}
		o.appendLog(ctx, r, model.LogLevelInfo, model.LogCodeStageComplete,
			fmt.Sprintf("stage %s completed", st.name))
		o.notifyStatus(r, st.name)
	}
	return nil
}

// catchUp moves the status forward past a stage whose artifacts already
// exist, e.g. after a crash between finishing work and saving status.
func (o *Orchestrator) catchUp(ctx context.Context, r *run, st stage) error {
	p := r.project
	if statusRank(p.Status) >= statusRank(st.status) {
		return nil
	}
	p.Status = st.status
	p.FailedStage = ""
	if err := o.store.SaveProject(ctx, p); err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	o.appendLog(ctx, r, model.LogLevelInfo, model.LogCodeStageSkip,
		fmt.Sprintf("stage %s already satisfied", st.name))
	o.notifyStatus(r, st.name)
	return nil
}

func (o *Orchestrator) runWithRetry(ctx context.Context, r *run, st stage) error {
	var err error
	for attempt := 1; attempt <= o.retryAttempts; attempt++ {
		err = st.exec(ctx, r)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == o.retryAttempts {
			return err
		}
		delay := o.retryBaseDelay * time.Duration(attempt)
		o.appendLog(ctx, r, model.LogLevelWarn, model.LogCodeStageRetry,
			fmt.Sprintf("stage %s attempt %d failed, retrying in %s: %v", st.name, attempt, delay, err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// fail records the failing stage (and scene, when a StageError names
// one), flips the project to failed and returns the original error.
func (o *Orchestrator) fail(ctx context.Context, r *run, stageName string, err error) error {
	name := stageName
	sceneNote := ""
	var se *StageError
	if errors.As(err, &se) {
		if se.Stage != "" {
			name = se.Stage
		}
		if se.Scene > 0 {
			sceneNote = fmt.Sprintf(" (scene %d)", se.Scene)
		}
	}

	p := r.project
	p.Status = model.StatusFailed
	p.FailedStage = name
	if serr := o.store.SaveProject(ctx, p); serr != nil {
		log.Printf("pipeline: save failed project %s: %v", p.ID, serr)
	}
	o.appendLog(ctx, r, model.LogLevelError, model.LogCodeStageFailed,
		fmt.Sprintf("stage %s failed%s: %v", name, sceneNote, err))
	o.notifyStatus(r, name)
	return fmt.Errorf("advance %s: %w", p.ID, err)
}

// MarkStuck fails a project that sat in a non-terminal status past the
// wall-clock timeout. The sweeper calls this; a later generate request
// resumes the project from its surviving artifacts.
func (o *Orchestrator) MarkStuck(ctx context.Context, projectID string, since time.Time) error {
	p, err := o.store.Project(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return nil
	}
	r := &run{project: p}
	stuckAt := o.nextStageName(p.Status)
	p.Status = model.StatusFailed
	p.FailedStage = stuckAt
	if err := o.store.SaveProject(ctx, p); err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	stuck := &StuckTimeoutError{ProjectID: p.ID, Since: since}
	o.appendLog(ctx, r, model.LogLevelError, model.LogCodeStuckTimeout, stuck.Error())
	o.notifyStatus(r, stuckAt)
	return nil
}

// nextStageName is the stage that would run next from the given status.
func (o *Orchestrator) nextStageName(s model.ProjectStatus) string {
	rank := statusRank(s)
	for _, st := range o.stages() {
		if statusRank(st.status) > rank {
			return st.name
		}
	}
	return "publish"
}

func (o *Orchestrator) appendLog(ctx context.Context, r *run, level model.LogLevel, code, message string) {
	entry := model.LogEntry{
		ProjectID: r.project.ID,
		Level:     level,
		Code:      code,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.AppendLog(ctx, &entry); err != nil {
		log.Printf("pipeline: append log for %s: %v", r.project.ID, err)
	}
	if o.notifier != nil {
		o.notifier.NotifyLog(r.project.ID, entry)
	}
}

func (o *Orchestrator) notifyStatus(r *run, stageName string) {
	if o.notifier == nil {
		return
	}
	o.notifier.NotifyStatus(r.project.ID, r.project.Status, stageName)
}

// canvas resolves the render dimensions for the project orientation.
func (o *Orchestrator) canvas(p *model.Project) (int, int) {
	if p.Orientation == model.OrientationPortrait {
		return o.canvasHeight, o.canvasWidth
	}
	return o.canvasWidth, o.canvasHeight
}

func (o *Orchestrator) voiceFor(p *model.Project) string {
	if p.Voice != "" {
		return p.Voice
	}
	return o.defaultVoice
}
