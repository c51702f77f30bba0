package ledger_test

import (
	"testing"

	"hangarline/internal/domain"
	"hangarline/internal/ledger"
)

func start(emp, task, at string) domain.SessionEvent {
	return domain.SessionEvent{Kind: domain.KindStart, Employee: emp, TaskCode: task, At: at}
}

func stop(emp, at string, dur int64, status string) domain.SessionEvent {
	return domain.SessionEvent{Kind: domain.KindStop, Employee: emp, At: at, DurationSecs: &dur, ResultingStatus: status}
}

func TestReplayActiveInsertionOrder(t *testing.T) {
	events := []domain.SessionEvent{
		start("101", "RIVET", "2025-03-01T08:00:00Z"),
		start("202", "SEAL", "2025-03-01T08:10:00Z"),
		start("303", "NDT", "2025-03-01T08:20:00Z"),
		stop("202", "2025-03-01T09:00:00Z", 3000, domain.StatusInProgress),
	}
	active := ledger.ReplayActive(events)
	if len(active) != 2 {
		t.Fatalf("expected 2 open sessions, got %d", len(active))
	}
	if active[0].Employee != "101" || active[1].Employee != "303" {
		t.Fatalf("unexpected order: %v", active)
	}
}

func TestReplayNeverYieldsDuplicateOpenEmployee(t *testing.T) {
	events := []domain.SessionEvent{
		start("101", "RIVET", "2025-03-01T08:00:00Z"),
		stop("101", "2025-03-01T09:00:00Z", 3600, domain.StatusOnHold),
		start("101", "RIVET", "2025-03-01T10:00:00Z"),
		start("202", "SEAL", "2025-03-01T10:05:00Z"),
	}
	seen := map[string]bool{}
	for _, s := range ledger.ReplayActive(events) {
		if seen[s.Employee] {
			t.Fatalf("employee %s open twice", s.Employee)
		}
		seen[s.Employee] = true
	}
}

func TestOpenIsCaseInsensitive(t *testing.T) {
	events := []domain.SessionEvent{start("abc1", "RIVET", "2025-03-01T08:00:00Z")}
	if _, ok := ledger.Open(events, "ABC1"); !ok {
		t.Fatalf("expected case-insensitive match")
	}
	if _, ok := ledger.Open(events, "999"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestHistoryPairsStopsWithStarts(t *testing.T) {
	events := []domain.SessionEvent{
		start("101", "RIVET", "2025-03-01T08:00:00Z"),
		start("202", "SEAL", "2025-03-01T08:30:00Z"),
		stop("101", "2025-03-01T09:00:00Z", 3600, domain.StatusInProgress),
		stop("202", "2025-03-01T09:30:00Z", 3600, domain.StatusOnHold),
	}
	recs := ledger.History(events)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Employee != "101" || recs[0].TaskCode != "RIVET" || recs[0].DurationSecs != 3600 {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].ResultingStatus != domain.StatusOnHold {
		t.Fatalf("expected ON_HOLD resulting status, got %s", recs[1].ResultingStatus)
	}
}

func TestHistoryIgnoresOpenSessions(t *testing.T) {
	events := []domain.SessionEvent{
		start("101", "RIVET", "2025-03-01T08:00:00Z"),
	}
	if recs := ledger.History(events); len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestDisplayStatus(t *testing.T) {
	var none []domain.SessionEvent
	if got := ledger.DisplayStatus(domain.StatusOpen, none); got != domain.StatusOpen {
		t.Fatalf("empty ledger: got %s", got)
	}
	running := []domain.SessionEvent{start("101", "RIVET", "2025-03-01T08:00:00Z")}
	if got := ledger.DisplayStatus(domain.StatusInProgress, running); got != domain.StatusInProgress {
		t.Fatalf("active ledger: got %s", got)
	}
	held := []domain.SessionEvent{
		start("101", "RIVET", "2025-03-01T08:00:00Z"),
		stop("101", "2025-03-01T09:00:00Z", 3600, domain.StatusOnHold),
	}
	if got := ledger.DisplayStatus(domain.StatusOnHold, held); got != domain.StatusOnHold {
		t.Fatalf("held ledger: got %s", got)
	}
	if got := ledger.DisplayStatus(domain.StatusClosed, held); got != domain.StatusClosed {
		t.Fatalf("closed finding: got %s", got)
	}
}
