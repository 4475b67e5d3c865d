// Package httpapi exposes the task-assignment REST API: task CRUD under
// /api/tasks, role-scoped listings, and the interaction log, plus /health
// and /metrics at the root.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/auth"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/cache"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/interactions"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/otel"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store/postgres"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/visibility"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more
// than maxBytes. Call this for requests that have a body before decoding JSON.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST and PUT to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode (frontend dev server on a
// different origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, "+
			auth.HeaderUserID+", "+auth.HeaderRole+", "+auth.HeaderDepartmentID+", "+auth.HeaderSubDepartmentID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server (home dir, listen addr, API key,
// DB, cache, metrics).
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string // if set, require X-API-Key header or query api_key
	DBDriver       string // "sqlite" (default) or "postgres"
	DBURL          string // for postgres: connection string (or set DATABASE_URL env)
	RedisAddr      string // if set, use Redis for the interaction cache
	RedisPassword  string
	RedisDB        int
	MetricsHandler http.Handler // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool         // if true, wrap handler with otelhttp for request metrics
}

// App holds the HTTP server, store, interaction cache, and the services
// built on top of them.
type App struct {
	Server       *http.Server
	Store        store.Store
	Cache        cache.Cache
	Interactions *interactions.Service
	Resolver     *visibility.Resolver
	Home         string
}

// NewApp creates the HTTP app (server, store, cache, services) and registers
// all routes.
func NewApp(opts ServerOptions) (*App, error) {
	mux := http.NewServeMux()

	var st store.Store
	var err error
	if opts.DBDriver == "postgres" {
		st, err = postgres.Open(opts.DBURL)
	} else {
		st, err = store.Open(opts.Home)
	}
	if err != nil {
		return nil, err
	}
	_ = st.SeedDemo(context.Background())

	var c cache.Cache
	if opts.RedisAddr != "" {
		c, err = cache.NewRedis(context.Background(), opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			// The cache is an optimization; run degraded rather than refuse to start.
			slog.Warn("redis unavailable, using in-memory interaction cache", "addr", opts.RedisAddr, "error", err)
			c = cache.NewMemory()
		}
	} else {
		c = cache.NewMemory()
	}

	ints := interactions.NewService(st, c, slog.Default())
	app := &App{
		Store:        st,
		Cache:        c,
		Interactions: ints,
		Resolver:     visibility.NewResolver(st, ints),
		Home:         opts.Home,
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	} else {
		mux.HandleFunc("/metrics", app.handleMetricsFallback)
	}

	mux.HandleFunc("/api/tasks", app.handleTasks)
	mux.HandleFunc("/api/tasks/", app.handleTasksSub)

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = auth.Middleware(handler)
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "taskd")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
		_ = c.Close()
	})
	app.Server = srv
	return app, nil
}

// handleMetricsFallback serves plain-text task gauges when no Prometheus
// handler is configured.
func (a *App) handleMetricsFallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	pending, inProgress, completed := a.TaskCounts(r.Context())
	_, _ = w.Write([]byte("# TYPE taskd_tasks_total gauge\n"))
	_, _ = w.Write([]byte("taskd_tasks_total{status=\"pending\"} " + strconv.FormatInt(pending, 10) + "\n"))
	_, _ = w.Write([]byte("taskd_tasks_total{status=\"in progress\"} " + strconv.FormatInt(inProgress, 10) + "\n"))
	_, _ = w.Write([]byte("taskd_tasks_total{status=\"completed\"} " + strconv.FormatInt(completed, 10) + "\n"))
}

// TaskCounts returns the number of tasks per status. Used for the /metrics
// fallback and the OTel task gauge callback.
func (a *App) TaskCounts(ctx context.Context) (pending, inProgress, completed int64) {
	rows, err := a.Store.ListTasks(ctx, 0)
	if err != nil {
		return 0, 0, 0
	}
	for _, v := range taskview.Assemble(rows) {
		switch v.Status {
		case models.StatusPending:
			pending++
		case models.StatusInProgress:
			inProgress++
		case models.StatusCompleted:
			completed++
		}
	}
	return pending, inProgress, completed
}

// handleTasks serves /api/tasks: POST creates a task, GET lists every task
// as an assembled view.
func (a *App) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Title          string  `json:"title"`
			Description    string  `json:"description"`
			Priority       string  `json:"priority"`
			Status         string  `json:"status"`
			CreatedBy      int64   `json:"created_by"`
			DepartmentID   int64   `json:"department_id"`
			TargetDate     *string `json:"target_date"`
			Assignees      []int64 `json:"assigned_to"`
			SubDepartments []int64 `json:"sub_department_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		id, err := a.Store.CreateTask(r.Context(), store.NewTask{
			Title:          body.Title,
			Description:    body.Description,
			Priority:       body.Priority,
			Status:         body.Status,
			CreatedBy:      body.CreatedBy,
			DepartmentID:   body.DepartmentID,
			TargetDate:     body.TargetDate,
			Assignees:      body.Assignees,
			SubDepartments: body.SubDepartments,
		})
		if err != nil {
			otel.RecordTaskOp(r.Context(), "create", "error")
			writeStoreError(w, err)
			return
		}
		otel.RecordTaskOp(r.Context(), "create", "ok")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"task_id": id})
		return
	case http.MethodGet:
		rows, err := a.Store.ListTasks(r.Context(), 0)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, taskview.Assemble(rows))
		return
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
}

// handleTasksSub dispatches everything under /api/tasks/: per-task CRUD,
// department and sub-department listings, role-scoped views, and the
// interaction log.
func (a *App) handleTasksSub(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	switch parts[0] {
	case "department":
		a.handleDepartmentTasks(w, r, parts, a.Store.ListTasksByDepartment)
		return
	case "sub-department":
		a.handleDepartmentTasks(w, r, parts, a.Store.ListTasksBySubDepartment)
		return
	case "manager":
		a.handleScoped(w, r, models.RoleManager, scopedView(parts))
		return
	case "team-member":
		a.handleScoped(w, r, models.RoleTeamMember, scopedView(parts))
		return
	case "interactions":
		a.handleInteractions(w, r, parts)
		return
	}

	taskID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || taskID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	// /api/tasks/{id}
	if len(parts) == 1 || parts[1] == "" {
		a.handleTaskByID(w, r, taskID)
		return
	}

	switch parts[1] {
	case "status":
		a.handleTaskStatus(w, r, taskID)
	case "target-date":
		a.handleTaskTargetDate(w, r, taskID)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

type listByID func(ctx context.Context, id int64, limit int) ([]taskview.Row, error)

// handleDepartmentTasks serves /api/tasks/department/{id} and
// /api/tasks/sub-department/{id}.
func (a *App) handleDepartmentTasks(w http.ResponseWriter, r *http.Request, parts []string, list listByID) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if len(parts) < 2 || parts[1] == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rows, err := list(r.Context(), id, 0)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, taskview.Assemble(rows))
}

// scopedView maps the trailing path segment of a role-scoped route to a view
// name. An unknown segment returns "" and the handler rejects it.
func scopedView(parts []string) string {
	if len(parts) == 1 || parts[1] == "" {
		return visibility.ViewAll
	}
	switch parts[1] {
	case "my-tasks":
		return visibility.ViewMine
	case "other-tasks":
		return visibility.ViewOther
	case "unseen":
		return visibility.ViewUnseen
	}
	return ""
}

// handleScoped serves the role-scoped listings. The route names the role it
// serves; callers with a different role are rejected rather than silently
// given their own scope.
func (a *App) handleScoped(w http.ResponseWriter, r *http.Request, role, view string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if view == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	p, ok := auth.From(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "identity required")
		return
	}
	if p.Role != role {
		writeJSONError(w, http.StatusForbidden, "role not permitted for this listing")
		return
	}
	views, err := a.Resolver.ScopedTasks(r.Context(), p, view, 0)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, views)
}

// handleInteractions serves POST /api/tasks/interactions and
// GET /api/tasks/interactions/{taskId}.
func (a *App) handleInteractions(w http.ResponseWriter, r *http.Request, parts []string) {
	p, ok := auth.From(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "identity required")
		return
	}

	// GET /api/tasks/interactions/{taskId}
	if len(parts) >= 2 && parts[1] != "" {
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		taskID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || taskID <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid task id")
			return
		}
		list, err := a.Interactions.Get(r.Context(), p.UserID, taskID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, list)
		return
	}

	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		TaskID int64  `json:"taskId"`
		Type   string `json:"interactionType"`
		Detail string `json:"interactionDetail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	logged, err := a.Interactions.Log(r.Context(), models.Interaction{
		UserID: p.UserID,
		TaskID: body.TaskID,
		Type:   body.Type,
		Detail: body.Detail,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(logged)
}

// handleTaskByID serves GET, PUT, DELETE on /api/tasks/{id}.
func (a *App) handleTaskByID(w http.ResponseWriter, r *http.Request, taskID int64) {
	switch r.Method {
	case http.MethodGet:
		rows, err := a.Store.GetTask(r.Context(), taskID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		v := taskview.AssembleOne(rows)
		if v == nil {
			writeJSONError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, v)
		return
	case http.MethodPut:
		var body struct {
			Title          *string `json:"title"`
			Description    *string `json:"description"`
			Priority       *string `json:"priority"`
			Status         *string `json:"status"`
			DepartmentID   *int64  `json:"department_id"`
			TargetDate     *string `json:"target_date"`
			Assignees      []int64 `json:"assigned_to"`
			SubDepartments []int64 `json:"sub_department_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		err := a.Store.UpdateTask(r.Context(), taskID, store.TaskUpdate{
			Title:          body.Title,
			Description:    body.Description,
			Priority:       body.Priority,
			Status:         body.Status,
			DepartmentID:   body.DepartmentID,
			TargetDate:     body.TargetDate,
			Assignees:      body.Assignees,
			SubDepartments: body.SubDepartments,
		})
		if err != nil {
			otel.RecordTaskOp(r.Context(), "update", "error")
			writeStoreError(w, err)
			return
		}
		otel.RecordTaskOp(r.Context(), "update", "ok")
		writeJSON(w, map[string]any{"ok": true})
		return
	case http.MethodDelete:
		if err := a.Store.DeleteTask(r.Context(), taskID); err != nil {
			otel.RecordTaskOp(r.Context(), "delete", "error")
			writeStoreError(w, err)
			return
		}
		otel.RecordTaskOp(r.Context(), "delete", "ok")
		writeJSON(w, map[string]any{"ok": true})
		return
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
}

// handleTaskStatus serves PUT /api/tasks/{id}/status.
func (a *App) handleTaskStatus(w http.ResponseWriter, r *http.Request, taskID int64) {
	if r.Method != http.MethodPut {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := a.Store.UpdateTaskStatus(r.Context(), taskID, body.Status); err != nil {
		otel.RecordTaskOp(r.Context(), "status", "error")
		writeStoreError(w, err)
		return
	}
	otel.RecordTaskOp(r.Context(), "status", "ok")
	writeJSON(w, map[string]any{"ok": true})
}

// handleTaskTargetDate serves PUT /api/tasks/{id}/target-date. The change is
// recorded in the caller's interaction log, so an identity is required.
func (a *App) handleTaskTargetDate(w http.ResponseWriter, r *http.Request, taskID int64) {
	if r.Method != http.MethodPut {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, ok := auth.From(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "identity required")
		return
	}
	var body struct {
		TargetDate string `json:"target_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.TargetDate == "" {
		writeJSONError(w, http.StatusBadRequest, "target_date required")
		return
	}
	if err := a.Store.UpdateTaskTargetDate(r.Context(), taskID, body.TargetDate); err != nil {
		otel.RecordTaskOp(r.Context(), "target_date", "error")
		writeStoreError(w, err)
		return
	}
	otel.RecordTaskOp(r.Context(), "target_date", "ok")
	if _, err := a.Interactions.Log(r.Context(), models.Interaction{
		UserID: p.UserID,
		TaskID: taskID,
		Type:   models.InteractionTargetDateChange,
		Detail: body.TargetDate,
	}); err != nil {
		slog.Warn("target date interaction not logged", "task_id", taskID, "user_id", p.UserID, "error", err)
	}
	writeJSON(w, map[string]any{"ok": true})
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

// writeStoreError maps store sentinel errors onto HTTP status codes. Anything
// unexpected is a 500 with a generic body; the detail stays in the log.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
