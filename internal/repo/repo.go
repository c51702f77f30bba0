package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hangarline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertWorkOrder(ctx context.Context, tx *sql.Tx, wo domain.WorkOrder) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO work_orders(uid,wo_no,registration,customer,part_desc,created_at) VALUES (?,?,?,?,?,?)`,
		wo.UID, wo.Header.Number, nullable(wo.Header.Registration), nullable(wo.Header.Customer), nullable(wo.Header.PartDesc), wo.CreatedAt)
	return err
}

func scanWorkOrder(row *sql.Row) (domain.WorkOrder, error) {
	var wo domain.WorkOrder
	var reg, cust, part sql.NullString
	err := row.Scan(&wo.UID, &wo.Header.Number, &reg, &cust, &part, &wo.CreatedAt)
	if err == sql.ErrNoRows {
		return wo, ErrNotFound
	}
	wo.Header.Registration = reg.String
	wo.Header.Customer = cust.String
	wo.Header.PartDesc = part.String
	return wo, err
}

func (r Repo) GetWorkOrder(ctx context.Context, uid string) (domain.WorkOrder, error) {
	return scanWorkOrder(r.DB.QueryRowContext(ctx,
		`SELECT uid,wo_no,registration,customer,part_desc,created_at FROM work_orders WHERE uid=?`, uid))
}

func (r Repo) ListWorkOrders(ctx context.Context) ([]domain.WorkOrder, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT uid,wo_no,COALESCE(registration,''),COALESCE(customer,''),COALESCE(part_desc,''),created_at FROM work_orders ORDER BY created_at DESC, uid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkOrder
	for rows.Next() {
		var wo domain.WorkOrder
		if err := rows.Scan(&wo.UID, &wo.Header.Number, &wo.Header.Registration, &wo.Header.Customer, &wo.Header.PartDesc, &wo.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, wo)
	}
	return res, rows.Err()
}

// SingleWorkOrder returns the only work order in the workspace, erroring when
// zero or several exist so callers are forced to pick one explicitly.
func (r Repo) SingleWorkOrder(ctx context.Context) (domain.WorkOrder, error) {
	items, err := r.ListWorkOrders(ctx)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if len(items) == 0 {
		return domain.WorkOrder{}, ErrNotFound
	}
	if len(items) > 1 {
		return domain.WorkOrder{}, fmt.Errorf("multiple work orders exist; specify --workorder")
	}
	return items[0], nil
}

// LoadAggregate fetches the work order with its findings and materials.
// Session ledgers are loaded per finding via ListSessionEvents.
func (r Repo) LoadAggregate(ctx context.Context, uid string) (domain.WorkOrder, error) {
	wo, err := r.GetWorkOrder(ctx, uid)
	if err != nil {
		return wo, err
	}
	wo.Findings, err = r.ListFindings(ctx, uid)
	return wo, err
}

func (r Repo) InsertFinding(ctx context.Context, tx *sql.Tx, f domain.Finding) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO findings(id,work_order_uid,num,description,action,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		f.ID, f.WorkOrderUID, f.Num, nullable(f.Description), nullable(f.Action), f.Status, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return err
	}
	for i, m := range f.Materials {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO materials(finding_id,position,name,qty) VALUES (?,?,?,?)`,
			f.ID, i, m.Name, m.Qty); err != nil {
			return err
		}
	}
	return nil
}

// NextFindingNum allocates the next display number within a work order.
func (r Repo) NextFindingNum(ctx context.Context, tx *sql.Tx, workOrderUID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(num),0)+1 FROM findings WHERE work_order_uid=?`, workOrderUID).Scan(&n)
	return n, err
}

func (r Repo) GetFinding(ctx context.Context, id string) (domain.Finding, error) {
	var f domain.Finding
	var desc, action sql.NullString
	var evidence []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,work_order_uid,num,description,action,status,evidence,created_at,updated_at FROM findings WHERE id=?`, id).
		Scan(&f.ID, &f.WorkOrderUID, &f.Num, &desc, &action, &f.Status, &evidence, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if err != nil {
		return f, err
	}
	f.Description = desc.String
	f.Action = action.String
	f.HasEvidence = len(evidence) > 0
	f.Materials, err = r.listMaterials(ctx, f.ID)
	return f, err
}

func (r Repo) ListFindings(ctx context.Context, workOrderUID string) ([]domain.Finding, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,work_order_uid,num,COALESCE(description,''),COALESCE(action,''),status,evidence IS NOT NULL AND length(evidence)>0,created_at,updated_at
		 FROM findings WHERE work_order_uid=? ORDER BY num`, workOrderUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Finding
	for rows.Next() {
		var f domain.Finding
		if err := rows.Scan(&f.ID, &f.WorkOrderUID, &f.Num, &f.Description, &f.Action, &f.Status, &f.HasEvidence, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if res[i].Materials, err = r.listMaterials(ctx, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) listMaterials(ctx context.Context, findingID string) ([]domain.Material, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT name,qty FROM materials WHERE finding_id=? ORDER BY position`, findingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.Name, &m.Qty); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) UpdateFindingStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE findings SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetEvidence(ctx context.Context, tx *sql.Tx, id string, blob []byte, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE findings SET evidence=?, updated_at=? WHERE id=?`, blob, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetEvidence(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := r.DB.QueryRowContext(ctx, `SELECT evidence FROM findings WHERE id=?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return blob, err
}

func (r Repo) InsertSessionEvent(ctx context.Context, tx *sql.Tx, ev domain.SessionEvent) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO session_events(finding_id,kind,employee,task_code,at,duration_secs,resulting_status) VALUES (?,?,?,?,?,?,?)`,
		ev.FindingID, ev.Kind, ev.Employee, ev.TaskCode, ev.At, ev.DurationSecs, nullable(ev.ResultingStatus))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSessionEvents returns the finding's full ledger in append order.
func (r Repo) ListSessionEvents(ctx context.Context, findingID string) ([]domain.SessionEvent, error) {
	rows, err := r.DB.QueryContext(ctx, sessionEventsQuery, findingID)
	if err != nil {
		return nil, err
	}
	return scanSessionEvents(rows)
}

// ListSessionEventsTx is the in-transaction variant used by append guards.
func (r Repo) ListSessionEventsTx(ctx context.Context, tx *sql.Tx, findingID string) ([]domain.SessionEvent, error) {
	rows, err := tx.QueryContext(ctx, sessionEventsQuery, findingID)
	if err != nil {
		return nil, err
	}
	return scanSessionEvents(rows)
}

const sessionEventsQuery = `SELECT id,finding_id,kind,employee,task_code,at,duration_secs,COALESCE(resulting_status,'') FROM session_events WHERE finding_id=? ORDER BY id`

func scanSessionEvents(rows *sql.Rows) ([]domain.SessionEvent, error) {
	defer rows.Close()
	var res []domain.SessionEvent
	for rows.Next() {
		var ev domain.SessionEvent
		var dur sql.NullInt64
		if err := rows.Scan(&ev.ID, &ev.FindingID, &ev.Kind, &ev.Employee, &ev.TaskCode, &ev.At, &dur, &ev.ResultingStatus); err != nil {
			return nil, err
		}
		if dur.Valid {
			d := dur.Int64
			ev.DurationSecs = &d
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (r Repo) CountFindingsByStatus(ctx context.Context, workOrderUID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM findings WHERE work_order_uid=? GROUP BY status`, workOrderUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var c int
		if err := rows.Scan(&status, &c); err != nil {
			return nil, err
		}
		counts[status] = c
	}
	return counts, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, n int, workOrderUID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if workOrderUID != "" {
		clauses = append(clauses, "work_order_uid=?")
		args = append(args, workOrderUID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if n <= 0 {
		n = 20
	}
	args = append(args, n)
	query := `SELECT id,ts,type,COALESCE(work_order_uid,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.TS, &ev.Type, &ev.WorkOrderUID, &ev.EntityKind, &ev.EntityID, &ev.ActorID, &ev.Payload); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
