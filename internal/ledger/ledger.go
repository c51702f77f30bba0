// Package ledger replays a finding's append-only session event log into
// derived views. It holds no state of its own: every function is a pure
// computation over the ordered event slice, so all views survive reloads.
package ledger

import (
	"strings"

	"hangarline/internal/domain"
)

// ReplayActive returns the currently open sessions in the insertion order of
// their START events. The first element is "session #1" for the single-active
// fast paths. Employee identity is case-insensitive.
func ReplayActive(events []domain.SessionEvent) []domain.ActiveSession {
	var open []domain.ActiveSession
	for _, ev := range events {
		switch ev.Kind {
		case domain.KindStart:
			open = append(open, domain.ActiveSession{
				Employee:  ev.Employee,
				TaskCode:  ev.TaskCode,
				StartedAt: ev.At,
			})
		case domain.KindStop:
			for i, s := range open {
				if strings.EqualFold(s.Employee, ev.Employee) {
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
		}
	}
	return open
}

// Open reports the open session for the given employee, if any.
func Open(events []domain.SessionEvent, employee string) (domain.ActiveSession, bool) {
	for _, s := range ReplayActive(events) {
		if strings.EqualFold(s.Employee, employee) {
			return s, true
		}
	}
	return domain.ActiveSession{}, false
}

// History pairs every STOP with its matching START and returns the completed
// work records in ledger order. Display order (most-recent-first) is the
// caller's concern.
func History(events []domain.SessionEvent) []domain.WorkRecord {
	type openStart struct {
		employee string
		taskCode string
		at       string
	}
	var (
		open    []openStart
		records []domain.WorkRecord
	)
	for _, ev := range events {
		switch ev.Kind {
		case domain.KindStart:
			open = append(open, openStart{employee: ev.Employee, taskCode: ev.TaskCode, at: ev.At})
		case domain.KindStop:
			for i, s := range open {
				if !strings.EqualFold(s.employee, ev.Employee) {
					continue
				}
				var dur int64
				if ev.DurationSecs != nil {
					dur = *ev.DurationSecs
				}
				records = append(records, domain.WorkRecord{
					Employee:        s.employee,
					TaskCode:        s.taskCode,
					StartedAt:       s.at,
					StoppedAt:       ev.At,
					DurationSecs:    dur,
					ResultingStatus: ev.ResultingStatus,
				})
				open = append(open[:i], open[i+1:]...)
				break
			}
		}
	}
	return records
}

// DisplayStatus derives the presentation status line for a finding: active
// count wins over the stored status, a non-empty history without closure
// renders as on hold.
func DisplayStatus(status string, events []domain.SessionEvent) string {
	if status == domain.StatusClosed {
		return domain.StatusClosed
	}
	if n := len(ReplayActive(events)); n > 0 {
		return domain.StatusInProgress
	}
	if len(History(events)) > 0 {
		return domain.StatusOnHold
	}
	return domain.StatusOpen
}
