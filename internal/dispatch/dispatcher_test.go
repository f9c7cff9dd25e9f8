package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rahul/stepdeck/internal/recipe"
)

type fakeQueue struct {
	jobs []Job
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, job Job) (Job, error) {
	if q.err != nil {
		return Job{}, q.err
	}
	job.ID = "job-1"
	job.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q.jobs = append(q.jobs, job)
	return job, nil
}

func TestRequestRecordingShape(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, nil)

	job, err := d.RequestRecording(context.Background(), "proj1", "recipeA")
	if err != nil {
		t.Fatalf("RequestRecording: %v", err)
	}
	want := Job{
		ID:             "job-1",
		Type:           TypeRecording,
		ProjectID:      "proj1",
		RecipeID:       "CMD_RECORD",
		TargetRecipeID: "recipeA",
		Status:         StatusPending,
		CreatedAt:      job.CreatedAt,
	}
	if job != want {
		t.Fatalf("job = %#v, want %#v", job, want)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("expected exactly one enqueue, got %d", len(q.jobs))
	}
}

func TestRequestPlaybackShape(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, nil)

	job, err := d.RequestPlayback(context.Background(), "proj1", &recipe.Recipe{ID: "recipeA", Name: "R"})
	if err != nil {
		t.Fatalf("RequestPlayback: %v", err)
	}
	if job.Type != TypeAutomation || job.RecipeID != "recipeA" || job.ProjectID != "proj1" ||
		job.Status != StatusPending || job.TargetRecipeID != "" {
		t.Fatalf("unexpected job: %#v", job)
	}
}

func TestPreconditionsFailBeforeWrite(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() (Job, error)
		want error
	}{
		{"recording without project", func() (Job, error) { return d.RequestRecording(ctx, "", "recipeA") }, ErrNoProject},
		{"recording without recipe", func() (Job, error) { return d.RequestRecording(ctx, "proj1", "") }, ErrNoRecipe},
		{"playback without recipe", func() (Job, error) { return d.RequestPlayback(ctx, "proj1", nil) }, ErrNoRecipe},
		{"playback without project", func() (Job, error) { return d.RequestPlayback(ctx, "", &recipe.Recipe{ID: "r"}) }, ErrNoProject},
		{"playback of unsaved recipe", func() (Job, error) { return d.RequestPlayback(ctx, "proj1", &recipe.Recipe{Name: "draft"}) }, ErrNoRecipe},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := tc.call()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsPrecondition(err) {
				t.Fatalf("expected a precondition error, got %T", err)
			}
			if job != (Job{}) {
				t.Fatalf("expected no job, got %#v", job)
			}
		})
	}
	if len(q.jobs) != 0 {
		t.Fatalf("expected no writes, got %d", len(q.jobs))
	}
}

func TestQueueFailureIsPropagated(t *testing.T) {
	boom := errors.New("backend unavailable")
	d := NewDispatcher(&fakeQueue{err: boom}, nil)

	job, err := d.RequestRecording(context.Background(), "proj1", "recipeA")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	if IsPrecondition(err) {
		t.Fatal("transport failure must not look like a precondition failure")
	}
	if job != (Job{}) {
		t.Fatalf("expected no job on failure, got %#v", job)
	}
}

func TestRecordWireFormat(t *testing.T) {
	rec, err := BuildRecording("proj1", "recipeA")
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(rec.Record())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"projectId":"proj1","recipeId":"CMD_RECORD","targetRecipeId":"recipeA","status":"PENDING","type":"RECORDING"}`
	if string(data) != want {
		t.Fatalf("record = %s\nwant   %s", data, want)
	}

	play, err := BuildPlayback("proj1", &recipe.Recipe{ID: "recipeA"})
	if err != nil {
		t.Fatal(err)
	}
	data, err = json.Marshal(play.Record())
	if err != nil {
		t.Fatal(err)
	}
	want = `{"projectId":"proj1","recipeId":"recipeA","status":"PENDING","type":"AUTOMATION"}`
	if string(data) != want {
		t.Fatalf("record = %s\nwant   %s", data, want)
	}
}

func TestJobFromRecord(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	job, err := JobFromRecord("j9", Record{ProjectID: "p", RecipeID: RecordSentinel, TargetRecipeID: "r", Status: StatusPending, Type: TypeRecording, CreatedAt: &at})
	if err != nil {
		t.Fatal(err)
	}
	if job.ID != "j9" || !job.CreatedAt.Equal(at) || job.TargetRecipeID != "r" {
		t.Fatalf("unexpected job: %#v", job)
	}
	if _, err := JobFromRecord("j10", Record{Type: "REPLAY"}); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}
