package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rahul/stepdeck/internal/dispatch"
)

// JobQueue appends job records for the agent. It never updates or deletes
// them.
type JobQueue struct {
	Store *Store
}

func NewJobQueue(s *Store) *JobQueue {
	return &JobQueue{Store: s}
}

// Enqueue writes job and returns it with its id and createdAt.
func (q *JobQueue) Enqueue(ctx context.Context, job dispatch.Job) (dispatch.Job, error) {
	raw, err := json.Marshal(job.Record())
	if err != nil {
		return dispatch.Job{}, fmt.Errorf("encode job: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return dispatch.Job{}, fmt.Errorf("encode job: %w", err)
	}
	fields["createdAt"] = ServerTimestamp()

	doc, err := q.Store.CreateDocument(ctx, CollectionJobs, fields)
	if err != nil {
		return dispatch.Job{}, err
	}
	queued := job
	queued.ID = doc.ID
	queued.CreatedAt = doc.CreatedAt
	return queued, nil
}
