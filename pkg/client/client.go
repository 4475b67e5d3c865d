// Package client provides a Go SDK for the taskd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// Client calls the taskd HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string            // e.g. "http://localhost:3615"
	APIKey     string            // optional; set for X-API-Key / api_key
	Principal  *models.Principal // optional; when set, identity headers are sent with every request
	HTTPClient *http.Client      // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL (e.g. "http://localhost:3615").
// APIKey is optional; when set, requests use the X-API-Key header.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// As returns a copy of the client acting as the given principal. Scoped
// listings and interaction calls require one.
func (c *Client) As(p models.Principal) *Client {
	cp := *c
	cp.Principal = &p
	return &cp
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	u := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	if c.Principal != nil {
		req.Header.Set("X-User-ID", strconv.FormatInt(c.Principal.UserID, 10))
		req.Header.Set("X-User-Role", c.Principal.Role)
		if c.Principal.DepartmentID != 0 {
			req.Header.Set("X-Department-ID", strconv.FormatInt(c.Principal.DepartmentID, 10))
		}
		if c.Principal.SubDepartmentID != 0 {
			req.Header.Set("X-Sub-Department-ID", strconv.FormatInt(c.Principal.SubDepartmentID, 10))
		}
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("api %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("api %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health returns the /health response (ok: true).
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out.OK, err
}

// NewTask is the payload for CreateTask.
type NewTask struct {
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	Status         string  `json:"status,omitempty"`
	CreatedBy      int64   `json:"created_by"`
	DepartmentID   int64   `json:"department_id,omitempty"`
	TargetDate     *string `json:"target_date,omitempty"`
	Assignees      []int64 `json:"assigned_to,omitempty"`
	SubDepartments []int64 `json:"sub_department_ids,omitempty"`
}

// TaskUpdate is the payload for UpdateTask. Nil scalars leave the field
// unchanged; nil slices leave the relation untouched, non-nil replace it.
type TaskUpdate struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	Status         *string `json:"status,omitempty"`
	DepartmentID   *int64  `json:"department_id,omitempty"`
	TargetDate     *string `json:"target_date,omitempty"`
	Assignees      []int64 `json:"assigned_to,omitempty"`
	SubDepartments []int64 `json:"sub_department_ids,omitempty"`
}

// CreateTask creates a task with its relations and returns the task_id.
func (c *Client) CreateTask(ctx context.Context, t NewTask) (taskID int64, err error) {
	var out struct {
		TaskID int64 `json:"task_id"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/api/tasks", t, &out)
	return out.TaskID, err
}

// ListTasks returns every task as an assembled view.
func (c *Client) ListTasks(ctx context.Context) ([]models.TaskView, error) {
	var out []models.TaskView
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks", nil, &out)
	return out, err
}

// GetTask returns a single task view by ID.
func (c *Client) GetTask(ctx context.Context, taskID int64) (*models.TaskView, error) {
	var out models.TaskView
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks/"+strconv.FormatInt(taskID, 10), nil, &out)
	return &out, err
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, u TaskUpdate) error {
	return c.doJSON(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(taskID, 10), u, nil)
}

// UpdateTaskStatus sets a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, status string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(taskID, 10)+"/status",
		map[string]string{"status": status}, nil)
}

// UpdateTaskTargetDate sets a task's target date. Requires a principal; the
// change is recorded in the caller's interaction log.
func (c *Client) UpdateTaskTargetDate(ctx context.Context, taskID int64, targetDate string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(taskID, 10)+"/target-date",
		map[string]string{"target_date": targetDate}, nil)
}

// DeleteTask deletes a task and its relations.
func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/tasks/"+strconv.FormatInt(taskID, 10), nil, nil)
}

// TasksByDepartment returns the tasks owned by a department.
func (c *Client) TasksByDepartment(ctx context.Context, departmentID int64) ([]models.TaskView, error) {
	var out []models.TaskView
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks/department/"+strconv.FormatInt(departmentID, 10), nil, &out)
	return out, err
}

// TasksBySubDepartment returns the tasks targeting a sub-department.
func (c *Client) TasksBySubDepartment(ctx context.Context, subDepartmentID int64) ([]models.TaskView, error) {
	var out []models.TaskView
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks/sub-department/"+strconv.FormatInt(subDepartmentID, 10), nil, &out)
	return out, err
}

// ManagerTasks returns a manager's scoped listing. view is "", "my-tasks",
// or "other-tasks". Requires a Manager principal.
func (c *Client) ManagerTasks(ctx context.Context, view string) ([]models.TaskView, error) {
	return c.scopedTasks(ctx, "/api/tasks/manager", view)
}

// TeamMemberTasks returns a team member's scoped listing. view is "",
// "my-tasks", "other-tasks", or "unseen". Requires a Team Member principal.
func (c *Client) TeamMemberTasks(ctx context.Context, view string) ([]models.TaskView, error) {
	return c.scopedTasks(ctx, "/api/tasks/team-member", view)
}

func (c *Client) scopedTasks(ctx context.Context, base, view string) ([]models.TaskView, error) {
	path := base
	if view != "" {
		path += "/" + view
	}
	var out []models.TaskView
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// LogInteraction appends an interaction on behalf of the client's principal
// and returns the stored record.
func (c *Client) LogInteraction(ctx context.Context, taskID int64, kind, detail string) (models.Interaction, error) {
	var out models.Interaction
	err := c.doJSON(ctx, http.MethodPost, "/api/tasks/interactions", map[string]any{
		"taskId":            taskID,
		"interactionType":   kind,
		"interactionDetail": detail,
	}, &out)
	return out, err
}

// TaskInteractions returns the principal's cached most-recent interaction
// for a task, falling back to the task's full log on a cache miss.
func (c *Client) TaskInteractions(ctx context.Context, taskID int64) ([]models.Interaction, error) {
	var out []models.Interaction
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks/interactions/"+strconv.FormatInt(taskID, 10), nil, &out)
	return out, err
}
