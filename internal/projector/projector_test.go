package projector_test

import (
	"testing"
	"time"

	"hangarline/internal/domain"
	"hangarline/internal/projector"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func startEvent(emp, task string, at time.Time) domain.SessionEvent {
	return domain.SessionEvent{
		Kind:     domain.KindStart,
		Employee: emp,
		TaskCode: task,
		At:       at.Format(time.RFC3339),
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "0:00:00"},
		{59, "0:00:59"},
		{61, "0:01:01"},
		{3600, "1:00:00"},
		{5400, "1:30:00"},
		{90061, "25:01:01"},
		{-5, "0:00:00"},
	}
	for _, c := range cases {
		if got := projector.FormatElapsed(c.secs); got != c.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", c.secs, got, c.want)
		}
	}
}

func TestElapsedRecomputedFromStart(t *testing.T) {
	evs := []domain.SessionEvent{startEvent("101", "RIVET", base)}

	rows := projector.Timers(evs, base.Add(90*time.Second))
	if len(rows) != 1 || rows[0].ElapsedSecs != 90 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	// Same ledger, later instant: the row reflects the new now, no state in
	// between.
	rows = projector.Timers(evs, base.Add(2*time.Hour))
	if rows[0].ElapsedSecs != 7200 || rows[0].Elapsed != "2:00:00" {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestElapsedClampsClockSkew(t *testing.T) {
	evs := []domain.SessionEvent{startEvent("101", "RIVET", base)}
	rows := projector.Timers(evs, base.Add(-time.Minute))
	if rows[0].ElapsedSecs != 0 || rows[0].Elapsed != "0:00:00" {
		t.Fatalf("expected clamped timer, got %+v", rows[0])
	}
}

func TestSnapshotDerivesDisplayStatus(t *testing.T) {
	idle := domain.Finding{ID: "f1", Num: 1, Status: domain.StatusInProgress}
	running := domain.Finding{ID: "f2", Num: 2, Status: domain.StatusInProgress}
	evsByFinding := map[string][]domain.SessionEvent{
		"f2": {startEvent("202", "SEAL", base)},
	}

	snaps := projector.Snapshot([]domain.Finding{idle, running}, evsByFinding, base.Add(time.Minute))
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if len(snaps[0].Timers) != 0 {
		t.Fatalf("idle finding should carry no timers")
	}
	if len(snaps[1].Timers) != 1 || snaps[1].Timers[0].Employee != "202" {
		t.Fatalf("unexpected timers %+v", snaps[1].Timers)
	}
	if snaps[1].DisplayStatus != domain.StatusInProgress {
		t.Fatalf("unexpected display status %s", snaps[1].DisplayStatus)
	}
}
