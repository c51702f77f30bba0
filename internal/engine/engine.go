package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hangarline/internal/config"
	"hangarline/internal/domain"
	"hangarline/internal/events"
	"hangarline/internal/ledger"
	"hangarline/internal/repo"
)

// Engine executes intents against the shared work-order aggregate. Every
// mutation is one read-validate-append-write cycle inside a transaction;
// rejected intents never touch the ledger.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// WorkOrderCreateOptions are parameters for authoring a work order.
type WorkOrderCreateOptions struct {
	UID          string
	Number       string
	Registration string
	Customer     string
	PartDesc     string
	ActorID      string
}

func (e Engine) CreateWorkOrder(ctx context.Context, opts WorkOrderCreateOptions) (domain.WorkOrder, error) {
	if strings.TrimSpace(opts.Number) == "" {
		return domain.WorkOrder{}, errors.New("work order number is required")
	}
	uid := opts.UID
	if uid == "" {
		uid = uuid.New().String()
	}
	wo := domain.WorkOrder{
		UID: uid,
		Header: domain.WorkOrderHeader{
			Number:       strings.TrimSpace(opts.Number),
			Registration: opts.Registration,
			Customer:     opts.Customer,
			PartDesc:     opts.PartDesc,
		},
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkOrder{}, &PersistenceError{Op: "create work order", Err: err}
	}
	defer tx.Rollback()

	if err := e.Repo.InsertWorkOrder(ctx, tx, wo); err != nil {
		return domain.WorkOrder{}, &PersistenceError{Op: "insert work order", Err: err}
	}
	if err := e.Events.Append(ctx, tx, "workorder.created", wo.UID, "workorder", wo.UID, opts.ActorID, events.EventPayload{"number": wo.Header.Number}); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkOrder{}, &PersistenceError{Op: "create work order", Err: err}
	}
	return wo, nil
}

// FindingCreateOptions are parameters for adding a finding at authoring time.
type FindingCreateOptions struct {
	ID           string
	WorkOrderUID string
	Description  string
	Action       string
	Materials    []domain.Material
	ActorID      string
}

func (e Engine) AddFinding(ctx context.Context, opts FindingCreateOptions) (domain.Finding, error) {
	if opts.WorkOrderUID == "" {
		return domain.Finding{}, errors.New("work order is required")
	}
	if _, err := e.Repo.GetWorkOrder(ctx, opts.WorkOrderUID); err != nil {
		return domain.Finding{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Finding{}, &PersistenceError{Op: "add finding", Err: err}
	}
	defer tx.Rollback()

	num, err := e.Repo.NextFindingNum(ctx, tx, opts.WorkOrderUID)
	if err != nil {
		return domain.Finding{}, &PersistenceError{Op: "allocate finding number", Err: err}
	}
	f := domain.Finding{
		ID:           id,
		WorkOrderUID: opts.WorkOrderUID,
		Num:          num,
		Description:  opts.Description,
		Action:       opts.Action,
		Status:       domain.StatusOpen,
		Materials:    opts.Materials,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Repo.InsertFinding(ctx, tx, f); err != nil {
		return domain.Finding{}, &PersistenceError{Op: "insert finding", Err: err}
	}
	if err := e.Events.Append(ctx, tx, "finding.created", f.WorkOrderUID, "finding", f.ID, opts.ActorID, events.EventPayload{"num": f.Num}); err != nil {
		return domain.Finding{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Finding{}, &PersistenceError{Op: "add finding", Err: err}
	}
	return f, nil
}

// StartCommand is a start intent for (finding, employee, task).
type StartCommand struct {
	FindingID string
	Employee  string
	TaskCode  string
}

// StartProposal is the propose-phase answer: either the start may commit
// immediately, or a join confirmation is required first.
type StartProposal struct {
	RequiresJoinConfirm bool     `json:"requires_join_confirm"`
	ActiveEmployees     []string `json:"active_employees,omitempty"`
}

// ProposeStart runs the start-side validations without mutating anything and
// reports whether a join decision stands between the caller and the commit.
func (e Engine) ProposeStart(ctx context.Context, cmd StartCommand) (StartProposal, error) {
	emp := strings.TrimSpace(cmd.Employee)
	task := strings.TrimSpace(cmd.TaskCode)
	if emp == "" || task == "" {
		return StartProposal{}, ErrMissingCredentials
	}
	f, err := e.Repo.GetFinding(ctx, cmd.FindingID)
	if err != nil {
		return StartProposal{}, err
	}
	if f.Status == domain.StatusClosed {
		return StartProposal{}, ErrFindingClosed
	}
	evs, err := e.Repo.ListSessionEvents(ctx, cmd.FindingID)
	if err != nil {
		return StartProposal{}, &PersistenceError{Op: "read ledger", Err: err}
	}
	if _, ok := ledger.Open(evs, emp); ok {
		return StartProposal{}, ErrAlreadyActive
	}
	active := ledger.ReplayActive(evs)
	return StartProposal{
		RequiresJoinConfirm: len(active) > 0,
		ActiveEmployees:     employeeNames(active),
	}, nil
}

// CommitStart appends the START event. joinConfirmed must be true when other
// sessions are open; parallel labor is an explicit human decision, never an
// automatic merge.
func (e Engine) CommitStart(ctx context.Context, cmd StartCommand, joinConfirmed bool) (domain.Finding, error) {
	emp := strings.TrimSpace(cmd.Employee)
	task := strings.TrimSpace(cmd.TaskCode)
	if emp == "" || task == "" {
		return domain.Finding{}, ErrMissingCredentials
	}
	f, err := e.Repo.GetFinding(ctx, cmd.FindingID)
	if err != nil {
		return f, err
	}
	if f.Status == domain.StatusClosed {
		return f, ErrFindingClosed
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return f, &PersistenceError{Op: "start session", Err: err}
	}
	defer tx.Rollback()

	evs, err := e.Repo.ListSessionEventsTx(ctx, tx, cmd.FindingID)
	if err != nil {
		return f, &PersistenceError{Op: "read ledger", Err: err}
	}
	if _, ok := ledger.Open(evs, emp); ok {
		return f, ErrDuplicateActiveSession
	}
	active := ledger.ReplayActive(evs)
	if len(active) > 0 && !joinConfirmed {
		return f, JoinRequiredError{Active: employeeNames(active)}
	}
	now := e.now().UTC().Format(time.RFC3339)
	ev := domain.SessionEvent{
		FindingID: cmd.FindingID,
		Kind:      domain.KindStart,
		Employee:  emp,
		TaskCode:  task,
		At:        now,
	}
	if _, err := e.Repo.InsertSessionEvent(ctx, tx, ev); err != nil {
		return f, &PersistenceError{Op: "append start", Err: err}
	}
	if f.Status != domain.StatusInProgress {
		if err := ensureStatusTransition(f.Status, domain.StatusInProgress); err != nil {
			return f, err
		}
		if err := e.Repo.UpdateFindingStatus(ctx, tx, f.ID, domain.StatusInProgress, now); err != nil {
			return f, &PersistenceError{Op: "update finding status", Err: err}
		}
		if err := e.Events.Append(ctx, tx, "finding.status.changed", f.WorkOrderUID, "finding", f.ID, emp, events.EventPayload{
			"from": f.Status, "to": domain.StatusInProgress,
		}); err != nil {
			return f, err
		}
		f.Status = domain.StatusInProgress
		f.UpdatedAt = now
	}
	if err := e.Events.Append(ctx, tx, "session.started", f.WorkOrderUID, "session", f.ID, emp, events.EventPayload{
		"task_code": task, "joined": len(active) > 0,
	}); err != nil {
		return f, err
	}
	if err := tx.Commit(); err != nil {
		return f, &PersistenceError{Op: "start session", Err: err}
	}
	return f, nil
}

// StopCommand is a stop intent. Employee may be empty when exactly one
// session is active.
type StopCommand struct {
	FindingID string
	Employee  string
}

// StopProposal reports what the commit will need: a target selection when
// several sessions are open, and a final-status decision on the last stop.
type StopProposal struct {
	Candidates           []domain.ActiveSession `json:"candidates,omitempty"`
	Target               string                 `json:"target,omitempty"`
	LastStop             bool                   `json:"last_stop"`
	RequiresTargetSelect bool                   `json:"requires_target_select"`
}

func (e Engine) ProposeStop(ctx context.Context, cmd StopCommand) (StopProposal, error) {
	if _, err := e.Repo.GetFinding(ctx, cmd.FindingID); err != nil {
		return StopProposal{}, err
	}
	evs, err := e.Repo.ListSessionEvents(ctx, cmd.FindingID)
	if err != nil {
		return StopProposal{}, &PersistenceError{Op: "read ledger", Err: err}
	}
	active := ledger.ReplayActive(evs)
	target, err := resolveStopTarget(active, cmd.Employee)
	if err != nil {
		var sel StopTargetRequiredError
		if errors.As(err, &sel) {
			return StopProposal{Candidates: active, LastStop: false, RequiresTargetSelect: true}, nil
		}
		return StopProposal{}, err
	}
	return StopProposal{
		Candidates: active,
		Target:     target.Employee,
		LastStop:   len(active) == 1,
	}, nil
}

// StopOptions carry the stop intent plus the decisions the commit may need.
type StopOptions struct {
	FindingID    string
	Employee     string
	FinalStatus  string // ON_HOLD or CLOSED, required on the last stop
	Evidence     []byte
	SkipEvidence bool
}

// CommitStop closes one session. On the last stop the final status decision
// is mandatory; choosing CLOSED additionally runs the evidence policy. The
// stop event records the finding status that resulted from it.
func (e Engine) CommitStop(ctx context.Context, opts StopOptions) (domain.Finding, domain.SessionEvent, error) {
	f, err := e.Repo.GetFinding(ctx, opts.FindingID)
	if err != nil {
		return f, domain.SessionEvent{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return f, domain.SessionEvent{}, &PersistenceError{Op: "stop session", Err: err}
	}
	defer tx.Rollback()

	evs, err := e.Repo.ListSessionEventsTx(ctx, tx, opts.FindingID)
	if err != nil {
		return f, domain.SessionEvent{}, &PersistenceError{Op: "read ledger", Err: err}
	}
	active := ledger.ReplayActive(evs)
	target, err := resolveStopTarget(active, opts.Employee)
	if err != nil {
		return f, domain.SessionEvent{}, err
	}
	lastStop := len(active) == 1

	resulting := domain.StatusInProgress
	if lastStop {
		switch opts.FinalStatus {
		case "":
			return f, domain.SessionEvent{}, ErrFinalStatusRequired
		case domain.StatusOnHold:
			resulting = domain.StatusOnHold
		case domain.StatusClosed:
			if err := e.ensureEvidencePolicy(opts.Evidence, opts.SkipEvidence); err != nil {
				return f, domain.SessionEvent{}, err
			}
			resulting = domain.StatusClosed
		default:
			return f, domain.SessionEvent{}, fmt.Errorf("invalid final status %q", opts.FinalStatus)
		}
	}

	now := e.now().UTC()
	dur := int64(0)
	if startT, perr := time.Parse(time.RFC3339, target.StartedAt); perr == nil {
		if d := int64(now.Sub(startT) / time.Second); d > 0 {
			dur = d
		}
	}
	ev := domain.SessionEvent{
		FindingID:       opts.FindingID,
		Kind:            domain.KindStop,
		Employee:        target.Employee,
		TaskCode:        target.TaskCode,
		At:              now.Format(time.RFC3339),
		DurationSecs:    &dur,
		ResultingStatus: resulting,
	}
	if ev.ID, err = e.Repo.InsertSessionEvent(ctx, tx, ev); err != nil {
		return f, ev, &PersistenceError{Op: "append stop", Err: err}
	}
	if lastStop {
		if err := ensureStatusTransition(f.Status, resulting); err != nil {
			return f, ev, err
		}
		if err := e.Repo.UpdateFindingStatus(ctx, tx, f.ID, resulting, ev.At); err != nil {
			return f, ev, &PersistenceError{Op: "update finding status", Err: err}
		}
		if err := e.Events.Append(ctx, tx, "finding.status.changed", f.WorkOrderUID, "finding", f.ID, target.Employee, events.EventPayload{
			"from": f.Status, "to": resulting,
		}); err != nil {
			return f, ev, err
		}
		if resulting == domain.StatusClosed {
			if len(opts.Evidence) > 0 {
				if err := e.Repo.SetEvidence(ctx, tx, f.ID, opts.Evidence, ev.At); err != nil {
					return f, ev, &PersistenceError{Op: "store evidence", Err: err}
				}
				if err := e.Events.Append(ctx, tx, "evidence.attached", f.WorkOrderUID, "finding", f.ID, target.Employee, events.EventPayload{
					"bytes": len(opts.Evidence),
				}); err != nil {
					return f, ev, err
				}
				f.HasEvidence = true
			}
			if err := e.Events.Append(ctx, tx, "finding.closed", f.WorkOrderUID, "finding", f.ID, target.Employee, events.EventPayload{
				"evidence": len(opts.Evidence) > 0,
			}); err != nil {
				return f, ev, err
			}
		}
		f.Status = resulting
		f.UpdatedAt = ev.At
	}
	if err := e.Events.Append(ctx, tx, "session.stopped", f.WorkOrderUID, "session", f.ID, target.Employee, events.EventPayload{
		"task_code": target.TaskCode, "duration_secs": dur, "resulting_status": resulting,
	}); err != nil {
		return f, ev, err
	}
	if err := tx.Commit(); err != nil {
		return f, ev, &PersistenceError{Op: "stop session", Err: err}
	}
	return f, ev, nil
}

// CloseFinding moves an ON_HOLD finding to CLOSED with evidence (or an
// explicit skip). Closing an already closed finding is a no-op, so a flow
// abandoned between the stop and the evidence step can be retried safely.
func (e Engine) CloseFinding(ctx context.Context, findingID string, evidence []byte, skip bool, actorID string) (domain.Finding, error) {
	f, err := e.Repo.GetFinding(ctx, findingID)
	if err != nil {
		return f, err
	}
	if f.Status == domain.StatusClosed {
		return f, nil
	}
	evs, err := e.Repo.ListSessionEvents(ctx, findingID)
	if err != nil {
		return f, &PersistenceError{Op: "read ledger", Err: err}
	}
	if active := ledger.ReplayActive(evs); len(active) > 0 {
		return f, fmt.Errorf("finding has %d active sessions; stop them first", len(active))
	}
	if err := ensureStatusTransition(f.Status, domain.StatusClosed); err != nil {
		return f, err
	}
	if err := e.ensureEvidencePolicy(evidence, skip); err != nil {
		return f, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return f, &PersistenceError{Op: "close finding", Err: err}
	}
	defer tx.Rollback()

	if len(evidence) > 0 {
		if err := e.Repo.SetEvidence(ctx, tx, f.ID, evidence, now); err != nil {
			return f, &PersistenceError{Op: "store evidence", Err: err}
		}
		if err := e.Events.Append(ctx, tx, "evidence.attached", f.WorkOrderUID, "finding", f.ID, actorID, events.EventPayload{
			"bytes": len(evidence),
		}); err != nil {
			return f, err
		}
		f.HasEvidence = true
	}
	if err := e.Repo.UpdateFindingStatus(ctx, tx, f.ID, domain.StatusClosed, now); err != nil {
		return f, &PersistenceError{Op: "update finding status", Err: err}
	}
	if err := e.Events.Append(ctx, tx, "finding.status.changed", f.WorkOrderUID, "finding", f.ID, actorID, events.EventPayload{
		"from": f.Status, "to": domain.StatusClosed,
	}); err != nil {
		return f, err
	}
	if err := e.Events.Append(ctx, tx, "finding.closed", f.WorkOrderUID, "finding", f.ID, actorID, events.EventPayload{
		"evidence": len(evidence) > 0,
	}); err != nil {
		return f, err
	}
	if err := tx.Commit(); err != nil {
		return f, &PersistenceError{Op: "close finding", Err: err}
	}
	f.Status = domain.StatusClosed
	f.UpdatedAt = now
	return f, nil
}

// ActiveSessions replays the currently open sessions for a finding.
func (e Engine) ActiveSessions(ctx context.Context, findingID string) ([]domain.ActiveSession, error) {
	evs, err := e.Repo.ListSessionEvents(ctx, findingID)
	if err != nil {
		return nil, &PersistenceError{Op: "read ledger", Err: err}
	}
	return ledger.ReplayActive(evs), nil
}

// FindingHistory replays the completed work records for a finding in ledger
// order; presentation flips it to most-recent-first.
func (e Engine) FindingHistory(ctx context.Context, findingID string) ([]domain.WorkRecord, error) {
	evs, err := e.Repo.ListSessionEvents(ctx, findingID)
	if err != nil {
		return nil, &PersistenceError{Op: "read ledger", Err: err}
	}
	return ledger.History(evs), nil
}

func (e Engine) ensureEvidencePolicy(evidence []byte, skip bool) error {
	if len(evidence) > 0 {
		return nil
	}
	if e.Config != nil && !e.Config.Evidence.RequireOnClose {
		return nil
	}
	if skip && (e.Config == nil || e.Config.Evidence.AllowSkip) {
		return nil
	}
	return ErrEvidenceRequired
}

func ensureStatusTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case domain.StatusOpen:
		if newStatus == domain.StatusInProgress {
			return nil
		}
	case domain.StatusInProgress:
		if newStatus == domain.StatusOnHold || newStatus == domain.StatusClosed {
			return nil
		}
	case domain.StatusOnHold:
		if newStatus == domain.StatusInProgress || newStatus == domain.StatusClosed {
			return nil
		}
	}
	return fmt.Errorf("invalid finding status transition %s -> %s", oldStatus, newStatus)
}

func resolveStopTarget(active []domain.ActiveSession, employee string) (domain.ActiveSession, error) {
	if len(active) == 0 {
		return domain.ActiveSession{}, ErrNoActiveSession
	}
	emp := strings.TrimSpace(employee)
	if emp == "" {
		if len(active) == 1 {
			return active[0], nil
		}
		return domain.ActiveSession{}, StopTargetRequiredError{Candidates: employeeNames(active)}
	}
	for _, s := range active {
		if strings.EqualFold(s.Employee, emp) {
			return s, nil
		}
	}
	return domain.ActiveSession{}, fmt.Errorf("%w for employee %s", ErrNoActiveSession, emp)
}

func employeeNames(active []domain.ActiveSession) []string {
	names := make([]string, 0, len(active))
	for _, s := range active {
		names = append(names, s.Employee)
	}
	return names
}
