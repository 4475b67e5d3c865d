package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

func TestServerSmoke(t *testing.T) {
	t.Parallel()
	app, err := NewApp(ServerOptions{Home: t.TempDir(), Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode /health: %v", err)
	}
	if health["ok"] != true {
		t.Fatalf("health: %v", health)
	}

	// Metrics fallback reports the seeded tasks.
	mResp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = mResp.Body.Close() }()
	body, _ := io.ReadAll(mResp.Body)
	if !strings.Contains(string(body), `taskd_tasks_total{status="pending"} 3`) {
		t.Fatalf("metrics body:\n%s", body)
	}

	// Listing returns the seeded demo tasks, newest first.
	lResp, err := http.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET /api/tasks: %v", err)
	}
	defer func() { _ = lResp.Body.Close() }()
	var views []models.TaskView
	if err := json.NewDecoder(lResp.Body).Decode(&views); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("seeded tasks: %d", len(views))
	}
	if views[0].TaskID != 3 || views[2].TaskID != 1 {
		t.Fatalf("ordering: %d, %d, %d", views[0].TaskID, views[1].TaskID, views[2].TaskID)
	}
	for _, v := range views {
		if v.Assignees == nil || v.SubDepartments == nil || v.Interactions == nil {
			t.Fatalf("view %d: nil relation slices", v.TaskID)
		}
	}

	// Method gating on the collection route.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/tasks", nil)
	dResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/tasks: %v", err)
	}
	defer func() { _ = dResp.Body.Close() }()
	if dResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /api/tasks: status=%d", dResp.StatusCode)
	}
}

func TestServerAPIKey(t *testing.T) {
	t.Parallel()
	app, err := NewApp(ServerOptions{Home: t.TempDir(), Addr: "127.0.0.1:0", APIKey: "sekrit"})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET without key: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing key: status=%d", resp.StatusCode)
	}

	// Health stays open for probes.
	hResp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = hResp.Body.Close()
	if hResp.StatusCode != http.StatusOK {
		t.Fatalf("health with key required: status=%d", hResp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/tasks", nil)
	req.Header.Set("X-API-Key", "sekrit")
	kResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with key: %v", err)
	}
	_ = kResp.Body.Close()
	if kResp.StatusCode != http.StatusOK {
		t.Fatalf("with key: status=%d", kResp.StatusCode)
	}

	// Query parameter works for tools that cannot set headers.
	qResp, err := http.Get(ts.URL + "/api/tasks?api_key=sekrit")
	if err != nil {
		t.Fatalf("GET with query key: %v", err)
	}
	_ = qResp.Body.Close()
	if qResp.StatusCode != http.StatusOK {
		t.Fatalf("query key: status=%d", qResp.StatusCode)
	}
}

func TestServerDevCORS(t *testing.T) {
	t.Parallel()
	app, err := NewApp(ServerOptions{Home: t.TempDir(), Addr: "127.0.0.1:0", Dev: true})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/tasks", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight: status=%d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS headers in dev mode")
	}
}
