package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/reelsmith/api/internal/pipeline"
	"github.com/reelsmith/api/internal/service"
	"github.com/reelsmith/api/internal/websocket"
)

// PipelineWorker processes pipeline tasks. Retries happen inside the
// orchestrator's stage loop, so every asynq outcome is final here; the
// task never goes back to the queue.
type PipelineWorker struct {
	orch *pipeline.Orchestrator
	hub  *websocket.Hub
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(orch *pipeline.Orchestrator, hub *websocket.Hub) *PipelineWorker {
	return &PipelineWorker{orch: orch, hub: hub}
}

// ProcessTask drives one project through the pipeline.
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.PipelineTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", asynq.SkipRetry)
	}

	log.Printf("Starting pipeline run: %s", payload.ProjectID)

	if err := w.orch.Advance(ctx, payload.ProjectID); err != nil {
		log.Printf("Pipeline run failed for %s: %v", payload.ProjectID, err)
		if w.hub != nil {
			w.hub.BroadcastError(payload.ProjectID, "PIPELINE_FAILED", err.Error())
		}
		// the failure is persisted on the project; a new generate
		// request resumes it, not an asynq retry
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Pipeline run finished: %s", payload.ProjectID)
	return nil
}
