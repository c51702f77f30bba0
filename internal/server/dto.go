package server

import (
	"hangarline/internal/domain"
	"hangarline/internal/projector"
)

type CreateWorkOrderRequest struct {
	UID          *string `json:"uid,omitempty"`
	Number       string  `json:"number" example:"WO-2024-0815"`
	Registration string  `json:"registration,omitempty" example:"9M-ABC"`
	Customer     string  `json:"customer,omitempty"`
	PartDesc     string  `json:"part_desc,omitempty"`
}

type WorkOrderResponse struct {
	UID          string `json:"uid"`
	Number       string `json:"number"`
	Registration string `json:"registration,omitempty"`
	Customer     string `json:"customer,omitempty"`
	PartDesc     string `json:"part_desc,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

func toWorkOrderResponse(wo domain.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		UID:          wo.UID,
		Number:       wo.Header.Number,
		Registration: wo.Header.Registration,
		Customer:     wo.Header.Customer,
		PartDesc:     wo.Header.PartDesc,
		CreatedAt:    wo.CreatedAt,
	}
}

// WorkOrderRenderResponse is the aggregate view: header plus the live
// per-finding snapshots.
type WorkOrderRenderResponse struct {
	WorkOrderResponse
	Findings []projector.FindingSnapshot `json:"findings"`
}

type CreateFindingRequest struct {
	ID          *string           `json:"id,omitempty"`
	Description string            `json:"description" example:"Corrosion at rib 4"`
	Action      string            `json:"action,omitempty"`
	Materials   []domain.Material `json:"materials,omitempty"`
}

type FindingResponse struct {
	ID          string            `json:"id"`
	WorkOrder   string            `json:"work_order_uid"`
	Num         int               `json:"num"`
	Description string            `json:"description"`
	Action      string            `json:"action,omitempty"`
	Status      string            `json:"status" enum:"OPEN,IN_PROGRESS,ON_HOLD,CLOSED"`
	HasEvidence bool              `json:"has_evidence"`
	Materials   []domain.Material `json:"materials,omitempty"`
	CreatedAt   string            `json:"created_at" format:"date-time"`
	UpdatedAt   string            `json:"updated_at" format:"date-time"`
}

func toFindingResponse(f domain.Finding) FindingResponse {
	return FindingResponse{
		ID:          f.ID,
		WorkOrder:   f.WorkOrderUID,
		Num:         f.Num,
		Description: f.Description,
		Action:      f.Action,
		Status:      f.Status,
		HasEvidence: f.HasEvidence,
		Materials:   f.Materials,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

type StartRequest struct {
	EmployeeID    string `json:"employee_id" example:"101"`
	TaskCode      string `json:"task_code" example:"RIVET"`
	JoinConfirmed bool   `json:"join_confirmed,omitempty"`
}

type StopRequest struct {
	EmployeeID   string `json:"employee_id,omitempty" example:"101"`
	FinalStatus  string `json:"final_status,omitempty" enum:",ON_HOLD,CLOSED"`
	EvidenceB64  string `json:"evidence_b64,omitempty"`
	SkipEvidence bool   `json:"skip_evidence,omitempty"`
}

type StopResponse struct {
	Finding FindingResponse     `json:"finding"`
	Session domain.SessionEvent `json:"session"`
}

type CloseRequest struct {
	EvidenceB64  string `json:"evidence_b64,omitempty"`
	SkipEvidence bool   `json:"skip_evidence,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
}

type SessionsResponse struct {
	FindingID string               `json:"finding_id"`
	Timers    []projector.TimerRow `json:"timers"`
}

type HistoryResponse struct {
	FindingID string              `json:"finding_id"`
	Records   []domain.WorkRecord `json:"records"`
	TotalSecs int64               `json:"total_secs"`
}
