package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/reelsmith/api/internal/model"
)

// runMedia produces every scene's image and audio. The two branches run
// concurrently and touch disjoint scene columns: images through a bounded
// worker pool, audio through the process-wide speech queue so only one
// synthesis batch runs at a time across all projects. The stage succeeds
// only when both branches succeed in full; partial output stays on disk
// and is skipped on the next attempt.
func (o *Orchestrator) runMedia(ctx context.Context, r *run) error {
	var imgPending, audPending []*model.Scene
	for _, sc := range r.scenes {
		if !fileExists(sc.ImagePath) {
			imgPending = append(imgPending, sc)
		}
		if !fileExists(sc.AudioPath) || sc.DurationMs <= 0 {
			audPending = append(audPending, sc)
		}
	}

	errs := make(chan error, 2)
	go func() { errs <- o.generateImages(ctx, r, imgPending) }()
	go func() { errs <- o.synthesizeAudio(ctx, r, audPending) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}

	changed := AssignTimings(r.scenes)
	for _, sc := range changed {
		if err := o.store.UpdateScene(ctx, sc.ID, map[string]interface{}{
			"start_time_ms": sc.StartTimeMs,
			"end_time_ms":   sc.EndTimeMs,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) generateImages(ctx context.Context, r *run, pending []*model.Scene) error {
	if len(pending) == 0 {
		return nil
	}
	width, height := o.canvas(r.project)

	sem := make(chan struct{}, o.imageWorkers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, sc := range pending {
		sc := sc
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prompt := sc.ImagePrompt
			if r.project.Character != "" {
				prompt += ", " + r.project.Character
			}
			path, err := o.images.Generate(ctx, prompt, r.ws.ImageFile(sc.Order), width, height)
			if err != nil {
				record(&StageError{Stage: "image", Scene: sc.Order, Err: err})
				return
			}
			if err := o.store.UpdateScene(ctx, sc.ID, map[string]interface{}{"image_path": path}); err != nil {
				record(err)
				return
			}
			sc.ImagePath = path
		}()
	}
	wg.Wait()
	return firstErr
}

// synthesizeAudio enqueues the whole batch as one queue unit. Scenes are
// synthesized in ascending order inside the unit, so word boundaries and
// durations land in timeline order even though the queue interleaves
// nothing between scenes of one project.
func (o *Orchestrator) synthesizeAudio(ctx context.Context, r *run, pending []*model.Scene) error {
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Order < pending[j].Order })
	voice := o.voiceFor(r.project)

	done := o.queue.Enqueue(r.project.ID, func(qctx context.Context) error {
		for _, sc := range pending {
			res, err := o.speech.Synthesize(qctx, sc.SpeechInput(), voice, r.ws.AudioFile(sc.Order))
			if err != nil {
				return &StageError{Stage: "audio", Scene: sc.Order, Err: err}
			}
			if err := o.store.UpdateScene(qctx, sc.ID, map[string]interface{}{
				"audio_path":      res.Path,
				"duration_ms":     res.DurationMs,
				"word_boundaries": res.WordBoundaries,
			}); err != nil {
				return err
			}
			sc.AudioPath = res.Path
			sc.DurationMs = res.DurationMs
			sc.WordBoundaries = res.WordBoundaries
		}
		return nil
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
