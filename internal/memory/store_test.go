package memory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidsage/internal/agent"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "facts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndQueryOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	facts := []agent.Fact{
		{Content: "low relevance", Source: "perception", Relevance: 0.2, Timestamp: base},
		{Content: "high relevance", Source: "perception", Relevance: 0.9, Timestamp: base},
		{Content: "tied but newer", Source: "action", Relevance: 0.5, Timestamp: base.Add(time.Second)},
		{Content: "tied but older", Source: "action", Relevance: 0.5, Timestamp: base},
	}
	for _, f := range facts {
		if err := s.Append(ctx, "s1", f); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Query(ctx, "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"high relevance", "tied but newer", "tied but older", "low relevance"}
	if len(got) != len(want) {
		t.Fatalf("got %d facts, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("facts[%d] = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestQueryLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := s.Append(ctx, "s1", agent.Fact{Content: "fact", Source: "t", Relevance: 0.5}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Query(ctx, "s1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d facts, want 3", len(got))
	}
}

func TestSessionIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "alice", agent.Fact{Content: "alice's fact", Source: "t"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Query(ctx, "bob", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("bob sees %d of alice's facts", len(got))
	}
}

func TestPreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetPreference(ctx, "s1", "units", "metric"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPreference(ctx, "s1", "units", "imperial"); err != nil {
		t.Fatal(err)
	}
	prefs, err := s.Preferences(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if prefs["units"] != "imperial" {
		t.Fatalf("units = %q, want imperial", prefs["units"])
	}
}

func TestTeardownRemovesSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "s1", agent.Fact{Content: "gone soon", Source: "t"})
	s.SetPreference(ctx, "s1", "k", "v")
	s.Append(ctx, "s2", agent.Fact{Content: "survives", Source: "t"})

	if err := s.Teardown(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Query(ctx, "s1", 10)
	if len(got) != 0 {
		t.Fatal("s1 facts survived teardown")
	}
	prefs, _ := s.Preferences(ctx, "s1")
	if len(prefs) != 0 {
		t.Fatal("s1 preferences survived teardown")
	}
	other, _ := s.Query(ctx, "s2", 10)
	if len(other) != 1 {
		t.Fatal("teardown leaked into another session")
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := s.Append(ctx, "s1", agent.Fact{Content: "concurrent", Source: "t"}); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := s.Query(ctx, "s1", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 80 {
		t.Fatalf("got %d facts, want 80", len(got))
	}
}
