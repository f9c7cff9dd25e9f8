package dispatch

import (
	"time"

	"github.com/rahul/stepdeck/internal/recipe"
)

// Type tells the agent what to do with a job.
type Type string

const (
	TypeRecording  Type = "RECORDING"
	TypeAutomation Type = "AUTOMATION"
)

// Status of a queued job. Only PENDING is ever written here; the agent owns
// every later transition.
type Status string

const StatusPending Status = "PENDING"

// RecordSentinel is the recipeId the agent expects on recording jobs.
const RecordSentinel = "CMD_RECORD"

// Job is one request for the external agent.
type Job struct {
	ID             string
	Type           Type
	ProjectID      string
	RecipeID       string
	TargetRecipeID string
	Status         Status
	// CreatedAt is set by the queue when the job is written.
	CreatedAt time.Time
}

// BuildRecording returns an unsubmitted recording job. The agent overwrites
// the target recipe's steps with whatever it captures.
func BuildRecording(projectID, targetRecipeID string) (Job, error) {
	if projectID == "" {
		return Job{}, precondition(ErrNoProject)
	}
	if targetRecipeID == "" {
		return Job{}, precondition(ErrNoRecipe)
	}
	return Job{
		Type:           TypeRecording,
		ProjectID:      projectID,
		RecipeID:       RecordSentinel,
		TargetRecipeID: targetRecipeID,
		Status:         StatusPending,
	}, nil
}

// BuildPlayback returns an unsubmitted job that replays r against a project.
func BuildPlayback(projectID string, r *recipe.Recipe) (Job, error) {
	if projectID == "" {
		return Job{}, precondition(ErrNoProject)
	}
	if r == nil || r.ID == "" {
		return Job{}, precondition(ErrNoRecipe)
	}
	return Job{
		Type:      TypeAutomation,
		ProjectID: projectID,
		RecipeID:  r.ID,
		Status:    StatusPending,
	}, nil
}
