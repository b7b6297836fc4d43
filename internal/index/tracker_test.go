package index

import (
	"errors"
	"testing"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	job, created := tr.Begin("v1")
	if !created || job.Status != StatusQueued {
		t.Fatalf("Begin = %+v created=%v", job, created)
	}

	tr.Start("v1")
	if got := tr.Poll("v1"); got.Status != StatusRunning {
		t.Fatalf("status = %s, want running", got.Status)
	}

	tr.Complete("v1", 42)
	got := tr.Poll("v1")
	if got.Status != StatusCompleted || got.Progress != 100 || got.TotalChunks != 42 {
		t.Fatalf("completed job = %+v", got)
	}
	if got.EndedAt.IsZero() {
		t.Fatal("EndedAt not set")
	}
}

func TestTrackerPollUnknownIsNotFound(t *testing.T) {
	tr := NewTracker()
	got := tr.Poll("never-seen")
	if got.Status != StatusNotFound {
		t.Fatalf("status = %s, want not_found", got.Status)
	}
}

func TestTrackerIdempotentReIngest(t *testing.T) {
	tr := NewTracker()
	tr.Begin("v1")
	tr.Start("v1")
	tr.Complete("v1", 7)

	job, created := tr.Begin("v1")
	if created {
		t.Fatal("completed source must not get a new job")
	}
	if job.Status != StatusCompleted || job.TotalChunks != 7 {
		t.Fatalf("existing result not reported: %+v", job)
	}
}

func TestTrackerInFlightNotRestarted(t *testing.T) {
	tr := NewTracker()
	tr.Begin("v1")
	tr.Start("v1")

	if _, created := tr.Begin("v1"); created {
		t.Fatal("running source must not get a second job")
	}
}

func TestTrackerFailedJobMayRetry(t *testing.T) {
	tr := NewTracker()
	tr.Begin("v1")
	tr.Start("v1")
	tr.Fail("v1", errors.New("fetch exploded"))

	got := tr.Poll("v1")
	if got.Status != StatusFailed || got.Error == "" {
		t.Fatalf("failed job = %+v", got)
	}

	if _, created := tr.Begin("v1"); !created {
		t.Fatal("failed source should be retryable")
	}
	if got := tr.Poll("v1"); got.Status != StatusQueued {
		t.Fatalf("retry status = %s, want queued", got.Status)
	}
}

func TestTrackerRetryGetsNewAttempt(t *testing.T) {
	tr := NewTracker()
	first, _ := tr.Begin("v1")
	tr.Fail("v1", errors.New("fetch exploded"))

	second, created := tr.Begin("v1")
	if !created {
		t.Fatal("failed source should be retryable")
	}
	if second.Attempt != first.Attempt+1 {
		t.Fatalf("attempt = %d after %d, want increment", second.Attempt, first.Attempt)
	}
}

func TestTrackerProgressMonotonic(t *testing.T) {
	tr := NewTracker()
	tr.Begin("v1")
	tr.Start("v1")

	tr.SetProgress("v1", 40)
	tr.SetProgress("v1", 20)
	if got := tr.Poll("v1"); got.Progress != 40 {
		t.Fatalf("progress moved backwards: %d", got.Progress)
	}
	tr.SetProgress("v1", 250)
	if got := tr.Poll("v1"); got.Progress != 100 {
		t.Fatalf("progress not clamped: %d", got.Progress)
	}
}

func TestTrackerTerminalJobsImmutable(t *testing.T) {
	tr := NewTracker()
	tr.Begin("v1")
	tr.Start("v1")
	tr.Complete("v1", 5)

	tr.SetProgress("v1", 10)
	tr.Fail("v1", errors.New("too late"))
	got := tr.Poll("v1")
	if got.Status != StatusCompleted || got.Progress != 100 || got.Error != "" {
		t.Fatalf("terminal job mutated: %+v", got)
	}
}
