package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"hangarline/internal/config"
	"hangarline/internal/db"
	"hangarline/internal/engine"
	"hangarline/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return out
}

type errEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func seedFinding(t *testing.T, ts *testServer) (woUID, findingID string) {
	t.Helper()
	resp, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/workorders", CreateWorkOrderRequest{
		Number:       "WO-7",
		Registration: "9M-ABC",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create workorder: %d %s", resp.StatusCode, data)
	}
	wo := decode[WorkOrderResponse](t, data)
	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/workorders/"+wo.UID+"/findings", CreateFindingRequest{
		Description: "Cracked bracket",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create finding: %d %s", resp.StatusCode, data)
	}
	f := decode[FindingResponse](t, data)
	return wo.UID, f.ID
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", resp.StatusCode, data)
	}
}

func TestStartStopRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	_, fid := seedFinding(t, ts)

	resp, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{
		EmployeeID: "101", TaskCode: "RIVET",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d %s", resp.StatusCode, data)
	}
	f := decode[FindingResponse](t, data)
	if f.Status != "IN_PROGRESS" {
		t.Fatalf("expected IN_PROGRESS, got %s", f.Status)
	}

	resp, data = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/findings/"+fid+"/sessions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions: %d %s", resp.StatusCode, data)
	}
	sessions := decode[SessionsResponse](t, data)
	if len(sessions.Timers) != 1 || sessions.Timers[0].Employee != "101" {
		t.Fatalf("unexpected timers %+v", sessions.Timers)
	}

	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/stop", StopRequest{
		FinalStatus: "ON_HOLD",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: %d %s", resp.StatusCode, data)
	}
	stop := decode[StopResponse](t, data)
	if stop.Finding.Status != "ON_HOLD" {
		t.Fatalf("expected ON_HOLD, got %s", stop.Finding.Status)
	}
}

func TestJoinConflictEnvelope(t *testing.T) {
	ts := newTestServer(t)
	_, fid := seedFinding(t, ts)

	doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{EmployeeID: "101", TaskCode: "RIVET"})

	resp, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{
		EmployeeID: "202", TaskCode: "SEAL",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, data)
	}
	env := decode[errEnvelope](t, data)
	if env.Error.Code != "join_required" {
		t.Fatalf("expected join_required, got %s", env.Error.Code)
	}
	if _, ok := env.Error.Details["active"]; !ok {
		t.Fatalf("expected active list in details: %s", data)
	}

	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{
		EmployeeID: "202", TaskCode: "SEAL", JoinConfirmed: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join start: %d %s", resp.StatusCode, data)
	}
}

func TestStopDecisionEnvelopes(t *testing.T) {
	ts := newTestServer(t)
	_, fid := seedFinding(t, ts)

	doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{EmployeeID: "101", TaskCode: "RIVET"})
	doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{EmployeeID: "202", TaskCode: "SEAL", JoinConfirmed: true})

	resp, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/stop", StopRequest{})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, data)
	}
	if env := decode[errEnvelope](t, data); env.Error.Code != "stop_target_required" {
		t.Fatalf("expected stop_target_required, got %s", env.Error.Code)
	}

	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/stop", StopRequest{EmployeeID: "101"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first stop: %d %s", resp.StatusCode, data)
	}

	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/stop", StopRequest{EmployeeID: "202"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, data)
	}
	if env := decode[errEnvelope](t, data); env.Error.Code != "final_status_required" {
		t.Fatalf("expected final_status_required, got %s", env.Error.Code)
	}

	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/stop", StopRequest{
		EmployeeID: "202", FinalStatus: "CLOSED",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", resp.StatusCode, data)
	}
	if env := decode[errEnvelope](t, data); env.Error.Code != "evidence_required" {
		t.Fatalf("expected evidence_required, got %s", env.Error.Code)
	}

	blob := base64.StdEncoding.EncodeToString([]byte("photo"))
	resp, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/stop", StopRequest{
		EmployeeID: "202", FinalStatus: "CLOSED", EvidenceB64: blob,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final stop: %d %s", resp.StatusCode, data)
	}
	stop := decode[StopResponse](t, data)
	if stop.Finding.Status != "CLOSED" || !stop.Finding.HasEvidence {
		t.Fatalf("unexpected finding %+v", stop.Finding)
	}

	resp, data = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/findings/"+fid+"/evidence", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evidence: %d %s", resp.StatusCode, data)
	}

	resp, data = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/findings/"+fid+"/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: %d %s", resp.StatusCode, data)
	}
	hist := decode[HistoryResponse](t, data)
	if len(hist.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(hist.Records))
	}
	// Newest first.
	if hist.Records[0].Employee != "202" {
		t.Fatalf("expected newest record first, got %+v", hist.Records)
	}
}

func TestRenderAndEvents(t *testing.T) {
	ts := newTestServer(t)
	wo, fid := seedFinding(t, ts)

	doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/findings/"+fid+"/start", StartRequest{EmployeeID: "101", TaskCode: "RIVET"})

	resp, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/workorders/"+wo, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render: %d %s", resp.StatusCode, data)
	}
	render := decode[WorkOrderRenderResponse](t, data)
	if len(render.Findings) != 1 || render.Findings[0].DisplayStatus != "IN_PROGRESS" {
		t.Fatalf("unexpected render %+v", render.Findings)
	}
	if len(render.Findings[0].Timers) != 1 {
		t.Fatalf("expected a live timer in the render")
	}

	resp, data = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/events?work_order_uid="+wo, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", resp.StatusCode, data)
	}
	var evs []map[string]any
	if err := json.Unmarshal(data, &evs); err != nil || len(evs) == 0 {
		t.Fatalf("expected audit events, got %s (%v)", data, err)
	}
}

func TestUnknownFindingIs404(t *testing.T) {
	ts := newTestServer(t)
	resp, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/findings/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", resp.StatusCode, data)
	}
	if env := decode[errEnvelope](t, data); env.Error.Code != "not_found" {
		t.Fatalf("expected not_found, got %s", env.Error.Code)
	}
}
