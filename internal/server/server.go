package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"hangarline/internal/domain"
	"hangarline/internal/engine"
	"hangarline/internal/projector"
	"hangarline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"join_required"`
	Message string         `json:"message" example:"other sessions active (101); join confirmation required"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Hangarline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Hangarline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerWorkOrders(group, cfg.Engine)
	registerFindings(group, cfg.Engine)
	registerSessions(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps engine failures onto the envelope. Decision requirements
// (join, stop target, final status) are conflicts the client resolves by
// asking the user; they are not validation failures.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var join engine.JoinRequiredError
	if errors.As(err, &join) {
		return newAPIError(http.StatusConflict, "join_required", err.Error(), map[string]any{"active": join.Active})
	}
	var sel engine.StopTargetRequiredError
	if errors.As(err, &sel) {
		return newAPIError(http.StatusConflict, "stop_target_required", err.Error(), map[string]any{"candidates": sel.Candidates})
	}
	var pe *engine.PersistenceError
	if errors.As(err, &pe) {
		return newAPIError(http.StatusServiceUnavailable, "persistence_unavailable", err.Error(), map[string]any{"op": pe.Op})
	}
	switch {
	case errors.Is(err, engine.ErrFinalStatusRequired):
		return newAPIError(http.StatusConflict, "final_status_required", err.Error(), nil)
	case errors.Is(err, engine.ErrAlreadyActive), errors.Is(err, engine.ErrDuplicateActiveSession):
		return newAPIError(http.StatusConflict, "already_active", err.Error(), nil)
	case errors.Is(err, engine.ErrFindingClosed):
		return newAPIError(http.StatusConflict, "finding_closed", err.Error(), nil)
	case errors.Is(err, engine.ErrNoActiveSession):
		return newAPIError(http.StatusConflict, "no_active_session", err.Error(), nil)
	case errors.Is(err, engine.ErrEvidenceRequired):
		return newAPIError(http.StatusUnprocessableEntity, "evidence_required", err.Error(), nil)
	case errors.Is(err, engine.ErrMissingCredentials):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case strings.Contains(lowered, "active sessions"):
		return newAPIError(http.StatusConflict, "sessions_active", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusServiceUnavailable:
		return "persistence_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWorkOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-workorder",
		Method:        http.MethodPost,
		Path:          "/workorders",
		Summary:       "Create work order",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		opts := engine.WorkOrderCreateOptions{
			Number:       input.Body.Number,
			Registration: input.Body.Registration,
			Customer:     input.Body.Customer,
			PartDesc:     input.Body.PartDesc,
		}
		if input.Body.UID != nil {
			opts.UID = *input.Body.UID
		}
		wo, err := e.CreateWorkOrder(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: toWorkOrderResponse(wo)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workorders",
		Method:      http.MethodGet,
		Path:        "/workorders",
		Summary:     "List work orders",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []WorkOrderResponse `json:"body"`
	}, error) {
		all, err := e.Repo.ListWorkOrders(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]WorkOrderResponse, 0, len(all))
		for _, wo := range all {
			out = append(out, toWorkOrderResponse(wo))
		}
		return &struct {
			Body []WorkOrderResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "render-workorder",
		Method:      http.MethodGet,
		Path:        "/workorders/{uid}",
		Summary:     "Render work order with live finding snapshots",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UID string `path:"uid"`
	}) (*struct {
		Body WorkOrderRenderResponse `json:"body"`
	}, error) {
		wo, err := e.Repo.LoadAggregate(ctx, input.UID)
		if err != nil {
			return nil, handleError(err)
		}
		findings := wo.Findings
		evsByFinding := make(map[string][]domain.SessionEvent, len(findings))
		for _, f := range findings {
			evs, err := e.Repo.ListSessionEvents(ctx, f.ID)
			if err != nil {
				return nil, handleError(err)
			}
			evsByFinding[f.ID] = evs
		}
		resp := WorkOrderRenderResponse{
			WorkOrderResponse: toWorkOrderResponse(wo),
			Findings:          projector.Snapshot(findings, evsByFinding, e.Now()),
		}
		return &struct {
			Body WorkOrderRenderResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerFindings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-finding",
		Method:        http.MethodPost,
		Path:          "/workorders/{uid}/findings",
		Summary:       "Add finding",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		UID  string               `path:"uid"`
		Body CreateFindingRequest `json:"body"`
	}) (*struct {
		Body FindingResponse `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Description) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "description is required", nil)
		}
		opts := engine.FindingCreateOptions{
			WorkOrderUID: input.UID,
			Description:  input.Body.Description,
			Action:       input.Body.Action,
			Materials:    input.Body.Materials,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		f, err := e.AddFinding(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FindingResponse `json:"body"`
		}{Body: toFindingResponse(f)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-findings",
		Method:      http.MethodGet,
		Path:        "/workorders/{uid}/findings",
		Summary:     "List findings",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UID string `path:"uid"`
	}) (*struct {
		Body []FindingResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetWorkOrder(ctx, input.UID); err != nil {
			return nil, handleError(err)
		}
		findings, err := e.Repo.ListFindings(ctx, input.UID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]FindingResponse, 0, len(findings))
		for _, f := range findings {
			out = append(out, toFindingResponse(f))
		}
		return &struct {
			Body []FindingResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-finding",
		Method:      http.MethodGet,
		Path:        "/findings/{id}",
		Summary:     "Get finding",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body FindingResponse `json:"body"`
	}, error) {
		f, err := e.Repo.GetFinding(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FindingResponse `json:"body"`
		}{Body: toFindingResponse(f)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-finding",
		Method:      http.MethodPost,
		Path:        "/findings/{id}/close",
		Summary:     "Close finding with evidence",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body CloseRequest `json:"body"`
	}) (*struct {
		Body FindingResponse `json:"body"`
	}, error) {
		evidence, err := decodeEvidence(input.Body.EvidenceB64)
		if err != nil {
			return nil, err
		}
		f, cerr := e.CloseFinding(ctx, input.ID, evidence, input.Body.SkipEvidence, input.Body.ActorID)
		if cerr != nil {
			return nil, handleError(cerr)
		}
		return &struct {
			Body FindingResponse `json:"body"`
		}{Body: toFindingResponse(f)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-evidence",
		Method:      http.MethodGet,
		Path:        "/findings/{id}/evidence",
		Summary:     "Fetch closure evidence",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body struct {
			EvidenceB64 string `json:"evidence_b64"`
		} `json:"body"`
	}, error) {
		blob, err := e.Repo.GetEvidence(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if len(blob) == 0 {
			return nil, newAPIError(http.StatusNotFound, "not_found", "no evidence attached", nil)
		}
		out := &struct {
			Body struct {
				EvidenceB64 string `json:"evidence_b64"`
			} `json:"body"`
		}{}
		out.Body.EvidenceB64 = base64.StdEncoding.EncodeToString(blob)
		return out, nil
	})
}

func registerSessions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "propose-start",
		Method:      http.MethodPost,
		Path:        "/findings/{id}/start/propose",
		Summary:     "Check what a start would require",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body StartRequest `json:"body"`
	}) (*struct {
		Body engine.StartProposal `json:"body"`
	}, error) {
		prop, err := e.ProposeStart(ctx, engine.StartCommand{
			FindingID: input.ID,
			Employee:  input.Body.EmployeeID,
			TaskCode:  input.Body.TaskCode,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.StartProposal `json:"body"`
		}{Body: prop}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/findings/{id}/start",
		Summary:     "Start labor session",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body StartRequest `json:"body"`
	}) (*struct {
		Body FindingResponse `json:"body"`
	}, error) {
		f, err := e.CommitStart(ctx, engine.StartCommand{
			FindingID: input.ID,
			Employee:  input.Body.EmployeeID,
			TaskCode:  input.Body.TaskCode,
		}, input.Body.JoinConfirmed)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FindingResponse `json:"body"`
		}{Body: toFindingResponse(f)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "propose-stop",
		Method:      http.MethodPost,
		Path:        "/findings/{id}/stop/propose",
		Summary:     "Check what a stop would require",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body StopRequest `json:"body"`
	}) (*struct {
		Body engine.StopProposal `json:"body"`
	}, error) {
		prop, err := e.ProposeStop(ctx, engine.StopCommand{FindingID: input.ID, Employee: input.Body.EmployeeID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.StopProposal `json:"body"`
		}{Body: prop}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodPost,
		Path:        "/findings/{id}/stop",
		Summary:     "Stop labor session",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body StopRequest `json:"body"`
	}) (*struct {
		Body StopResponse `json:"body"`
	}, error) {
		evidence, err := decodeEvidence(input.Body.EvidenceB64)
		if err != nil {
			return nil, err
		}
		f, ev, serr := e.CommitStop(ctx, engine.StopOptions{
			FindingID:    input.ID,
			Employee:     input.Body.EmployeeID,
			FinalStatus:  input.Body.FinalStatus,
			Evidence:     evidence,
			SkipEvidence: input.Body.SkipEvidence,
		})
		if serr != nil {
			return nil, handleError(serr)
		}
		return &struct {
			Body StopResponse `json:"body"`
		}{Body: StopResponse{Finding: toFindingResponse(f), Session: ev}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "finding-sessions",
		Method:      http.MethodGet,
		Path:        "/findings/{id}/sessions",
		Summary:     "Active sessions with live timers",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body SessionsResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetFinding(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		evs, err := e.Repo.ListSessionEvents(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SessionsResponse `json:"body"`
		}{Body: SessionsResponse{FindingID: input.ID, Timers: projector.Timers(evs, e.Now())}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "finding-history",
		Method:      http.MethodGet,
		Path:        "/findings/{id}/history",
		Summary:     "Completed work records, most recent first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body HistoryResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetFinding(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		recs, err := e.FindingHistory(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		var total int64
		for _, r := range recs {
			total += r.DurationSecs
		}
		// Ledger order is oldest-first; the API serves newest-first.
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
		return &struct {
			Body HistoryResponse `json:"body"`
		}{Body: HistoryResponse{FindingID: input.ID, Records: recs, TotalSecs: total}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit log, newest first",
	}, func(ctx context.Context, input *struct {
		WorkOrderUID string `query:"work_order_uid"`
		Type         string `query:"type"`
		EntityKind   string `query:"entity_kind"`
		EntityID     string `query:"entity_id"`
		Limit        int    `query:"limit"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		evs, err := e.Repo.LatestEvents(ctx, input.Limit, input.WorkOrderUID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: evs}, nil
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, _ *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func decodeEvidence(b64 string) ([]byte, huma.StatusError) {
	if b64 == "" {
		return nil, nil
	}
	blob, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, "bad_request", "evidence_b64 is not valid base64", nil)
	}
	return blob, nil
}
