package dispatch

import (
	"context"
	"fmt"

	"github.com/rahul/stepdeck/internal/observability"
	"github.com/rahul/stepdeck/internal/recipe"
)

// Queue persists a job and returns it with ID and CreatedAt filled in.
type Queue interface {
	Enqueue(ctx context.Context, job Job) (Job, error)
}

// Dispatcher turns operator intent into exactly one queued job per call.
// It never retries or deduplicates.
type Dispatcher struct {
	Queue  Queue
	Logger *observability.Logger
}

func NewDispatcher(queue Queue, logger *observability.Logger) *Dispatcher {
	return &Dispatcher{Queue: queue, Logger: logger}
}

// RequestRecording asks the agent to record a session into targetRecipeID.
func (d *Dispatcher) RequestRecording(ctx context.Context, projectID, targetRecipeID string) (Job, error) {
	job, err := BuildRecording(projectID, targetRecipeID)
	if err != nil {
		return Job{}, err
	}
	return d.submit(ctx, job)
}

// RequestPlayback asks the agent to play r back against projectID.
func (d *Dispatcher) RequestPlayback(ctx context.Context, projectID string, r *recipe.Recipe) (Job, error) {
	job, err := BuildPlayback(projectID, r)
	if err != nil {
		return Job{}, err
	}
	return d.submit(ctx, job)
}

func (d *Dispatcher) submit(ctx context.Context, job Job) (Job, error) {
	queued, err := d.Queue.Enqueue(ctx, job)
	if err != nil {
		d.Logger.LogDispatchFailed(string(job.Type), job.ProjectID, job.RecipeID, err)
		return Job{}, fmt.Errorf("enqueue %s job: %w", job.Type, err)
	}
	d.Logger.LogJobDispatched(queued.ID, string(queued.Type), queued.ProjectID, queued.RecipeID, queued.TargetRecipeID)
	return queued, nil
}
