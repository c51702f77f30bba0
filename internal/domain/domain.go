package domain

// Finding lifecycle statuses. CLOSED is terminal.
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusOnHold     = "ON_HOLD"
	StatusClosed     = "CLOSED"
)

// Session event kinds.
const (
	KindStart = "START"
	KindStop  = "STOP"
)

type WorkOrderHeader struct {
	Number       string `json:"number"`
	Registration string `json:"registration,omitempty"`
	Customer     string `json:"customer,omitempty"`
	PartDesc     string `json:"part_desc,omitempty"`
}

type WorkOrder struct {
	UID       string          `json:"uid"`
	Header    WorkOrderHeader `json:"header"`
	CreatedAt string          `json:"created_at" format:"date-time"`
	Findings  []Finding       `json:"findings,omitempty"`
}

type Finding struct {
	ID           string     `json:"id"`
	WorkOrderUID string     `json:"work_order_uid"`
	Num          int        `json:"num"`
	Description  string     `json:"description,omitempty"`
	Action       string     `json:"action,omitempty"`
	Status       string     `json:"status" enum:"OPEN,IN_PROGRESS,ON_HOLD,CLOSED"`
	HasEvidence  bool       `json:"has_evidence"`
	Materials    []Material `json:"materials,omitempty"`
	CreatedAt    string     `json:"created_at" format:"date-time"`
	UpdatedAt    string     `json:"updated_at" format:"date-time"`
}

// Material is read-only reference data attached to a finding at authoring time.
type Material struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// SessionEvent is one immutable entry in a finding's labor ledger.
// DurationSecs and ResultingStatus are set on STOP events only.
type SessionEvent struct {
	ID              int64  `json:"id"`
	FindingID       string `json:"finding_id"`
	Kind            string `json:"kind" enum:"START,STOP"`
	Employee        string `json:"employee"`
	TaskCode        string `json:"task_code"`
	At              string `json:"at" format:"date-time"`
	DurationSecs    *int64 `json:"duration_secs,omitempty"`
	ResultingStatus string `json:"resulting_status,omitempty"`
}

// ActiveSession is a derived view: a START with no matching STOP yet.
type ActiveSession struct {
	Employee  string `json:"employee"`
	TaskCode  string `json:"task_code"`
	StartedAt string `json:"started_at" format:"date-time"`
}

// WorkRecord is one completed (start,stop) pair replayed from the ledger.
type WorkRecord struct {
	Employee        string `json:"employee"`
	TaskCode        string `json:"task_code"`
	StartedAt       string `json:"started_at" format:"date-time"`
	StoppedAt       string `json:"stopped_at" format:"date-time"`
	DurationSecs    int64  `json:"duration_secs"`
	ResultingStatus string `json:"resulting_status,omitempty"`
}

type Event struct {
	ID           int64  `json:"id"`
	TS           string `json:"ts" format:"date-time"`
	Type         string `json:"type"`
	WorkOrderUID string `json:"work_order_uid,omitempty"`
	EntityKind   string `json:"entity_kind"`
	EntityID     string `json:"entity_id,omitempty"`
	ActorID      string `json:"actor_id"`
	Payload      string `json:"payload_json"`
}
