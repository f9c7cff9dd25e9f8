package dispatch

import (
	"fmt"
	"time"
)

// Record is the document the agent reads from the job queue. Field names
// are part of the agent contract and must not change.
type Record struct {
	ProjectID      string     `json:"projectId"`
	RecipeID       string     `json:"recipeId"`
	TargetRecipeID string     `json:"targetRecipeId,omitempty"`
	Status         Status     `json:"status"`
	Type           Type       `json:"type"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// Record returns the queue document for j. CreatedAt is left for the store.
func (j Job) Record() Record {
	return Record{
		ProjectID:      j.ProjectID,
		RecipeID:       j.RecipeID,
		TargetRecipeID: j.TargetRecipeID,
		Status:         j.Status,
		Type:           j.Type,
	}
}

// JobFromRecord rebuilds a Job from a stored record.
func JobFromRecord(id string, rec Record) (Job, error) {
	switch rec.Type {
	case TypeRecording, TypeAutomation:
	default:
		return Job{}, fmt.Errorf("job %s: unknown type %q", id, rec.Type)
	}
	job := Job{
		ID:             id,
		Type:           rec.Type,
		ProjectID:      rec.ProjectID,
		RecipeID:       rec.RecipeID,
		TargetRecipeID: rec.TargetRecipeID,
		Status:         rec.Status,
	}
	if rec.CreatedAt != nil {
		job.CreatedAt = *rec.CreatedAt
	}
	return job, nil
}
