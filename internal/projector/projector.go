// Package projector derives display values from the session ledger. Nothing
// here ticks or accumulates: elapsed time is recomputed from the start
// timestamp on every call, so a refresh that replaces the underlying rows can
// never desynchronize the numbers on screen.
package projector

import (
	"fmt"
	"time"

	"hangarline/internal/domain"
	"hangarline/internal/ledger"
)

// TimerRow is one running session as shown in the live view.
type TimerRow struct {
	Employee    string `json:"employee"`
	TaskCode    string `json:"task_code"`
	StartedAt   string `json:"started_at" format:"date-time"`
	ElapsedSecs int64  `json:"elapsed_secs"`
	Elapsed     string `json:"elapsed"`
}

// FindingSnapshot is the per-finding live projection.
type FindingSnapshot struct {
	FindingID     string     `json:"finding_id"`
	Num           int        `json:"num"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	DisplayStatus string     `json:"display_status"`
	HasEvidence   bool       `json:"has_evidence"`
	Timers        []TimerRow `json:"timers,omitempty"`
}

// Snapshot projects the live view of a work order's findings at the given
// instant.
func Snapshot(findings []domain.Finding, eventsByFinding map[string][]domain.SessionEvent, now time.Time) []FindingSnapshot {
	out := make([]FindingSnapshot, 0, len(findings))
	for _, f := range findings {
		evs := eventsByFinding[f.ID]
		out = append(out, FindingSnapshot{
			FindingID:     f.ID,
			Num:           f.Num,
			Description:   f.Description,
			Status:        f.Status,
			DisplayStatus: ledger.DisplayStatus(f.Status, evs),
			HasEvidence:   f.HasEvidence,
			Timers:        Timers(evs, now),
		})
	}
	return out
}

// Timers projects the running timers for one finding.
func Timers(evs []domain.SessionEvent, now time.Time) []TimerRow {
	active := ledger.ReplayActive(evs)
	rows := make([]TimerRow, 0, len(active))
	for _, s := range active {
		secs := ElapsedSecs(s.StartedAt, now)
		rows = append(rows, TimerRow{
			Employee:    s.Employee,
			TaskCode:    s.TaskCode,
			StartedAt:   s.StartedAt,
			ElapsedSecs: secs,
			Elapsed:     FormatElapsed(secs),
		})
	}
	return rows
}

// ElapsedSecs is now minus the start timestamp, clamped to zero. An
// unparseable timestamp reads as zero rather than poisoning the view.
func ElapsedSecs(startedAt string, now time.Time) int64 {
	start, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return 0
	}
	secs := int64(now.Sub(start) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// FormatElapsed renders seconds as H:MM:SS. Hours are unpadded and unbounded;
// a session left running over a weekend still reads correctly.
func FormatElapsed(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
