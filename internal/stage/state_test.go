package stage_test

import (
	"testing"

	"telex/internal/stage"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := stage.NewTracker("extractor")
	if tr.State() != stage.Idle {
		t.Fatalf("expected idle, got %s", tr.State())
	}
	if !tr.Begin() {
		t.Fatal("Begin should succeed from idle")
	}
	if tr.Begin() {
		t.Fatal("Begin should not succeed while processing")
	}
	if tr.State() != stage.Processing {
		t.Fatalf("expected processing, got %s", tr.State())
	}
	tr.Done(true)
	if tr.State() != stage.Idle {
		t.Fatalf("failure should return to idle, got %s", tr.State())
	}
	tr.Begin()
	tr.Done(false)

	snap := tr.Snapshot()
	if snap.Processed != 2 || snap.Failed != 1 || snap.Name != "extractor" {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if !snap.Health().Ready {
		t.Fatal("idle worker should be healthy")
	}
}

func TestTrackerStopIsTerminal(t *testing.T) {
	tr := stage.NewTracker("dispatcher")
	tr.Begin()
	tr.Stop()
	tr.Stop()
	tr.Done(false)
	if tr.State() != stage.Stopped {
		t.Fatalf("expected stopped, got %s", tr.State())
	}
	if tr.Begin() {
		t.Fatal("Begin should fail after stop")
	}
	if h := tr.Snapshot().Health(); h.Ready || h.Detail != "stopped" {
		t.Fatalf("unexpected health %#v", h)
	}
}

func TestStateString(t *testing.T) {
	cases := map[stage.State]string{
		stage.Idle:       "idle",
		stage.Processing: "processing",
		stage.Stopped:    "stopped",
		stage.State(9):   "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
