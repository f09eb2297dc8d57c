package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/service"
	"github.com/dshills/aihub/pkg/storage"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *service.WorkflowService) {
	t.Helper()
	svc := service.New(storage.NewMemoryRepository(), zap.NewNop())
	return New(svc, registry.Default(), opts...).Handler(), svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedDemo stores a trigger → llm workflow
func seedDemo(t *testing.T, svc *service.WorkflowService) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.NewWorkflow("Demo", "two nodes")
	require.NoError(t, err)

	reg := registry.Default()
	hook, _ := reg.Lookup("webhook")
	chat, _ := reg.Lookup("chat-completion")
	a := hook.Instantiate(workflow.Position{X: 0, Y: 0})
	b := chat.Instantiate(workflow.Position{X: 40, Y: 0})
	require.NoError(t, wf.AddNode(a))
	require.NoError(t, wf.AddNode(b))
	_, err = wf.Connect(a.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Save(context.Background(), wf))
	return wf
}

func TestCreateListGet(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/workflows", `{"name":"Demo","tags":["rag"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[workflow.Workflow](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"rag"}, created.Tags)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/api/v1/workflows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]workflow.Workflow](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Demo", list[0].Name)

	rec = do(t, h, http.MethodGet, "/api/v1/workflows/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[workflow.Workflow](t, rec).ID)
}

func TestListEmpty(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/workflows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestErrorStatuses(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"blank name", http.MethodPost, "/api/v1/workflows", `{"name":"  "}`, http.StatusBadRequest, "validation"},
		{"bad tag", http.MethodPost, "/api/v1/workflows", `{"name":"Demo","tags":["a b"]}`, http.StatusBadRequest, "validation"},
		{"bad json", http.MethodPost, "/api/v1/workflows", `{`, http.StatusBadRequest, "validation"},
		{"get missing", http.MethodGet, "/api/v1/workflows/nope", "", http.StatusNotFound, "not_found"},
		{"delete missing", http.MethodDelete, "/api/v1/workflows/nope", "", http.StatusNotFound, "not_found"},
		{"duplicate missing", http.MethodPost, "/api/v1/workflows/nope/duplicate", "", http.StatusNotFound, "not_found"},
		{"export missing", http.MethodGet, "/api/v1/workflows/nope/export", "", http.StatusNotFound, "not_found"},
		{"import garbage", http.MethodPost, "/api/v1/workflows/import", `not json`, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.kind, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestUpdateWorkflow(t *testing.T) {
	h, svc := newTestServer(t)
	wf := seedDemo(t, svc)
	path := "/api/v1/workflows/" + wf.ID.String()

	edited := wf.Clone()
	edited.Name = "Renamed"
	require.NoError(t, edited.RemoveConnection(edited.Connections[0].ID))
	body, err := json.Marshal(edited)
	require.NoError(t, err)

	rec := do(t, h, http.MethodPut, path, string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := svc.Get(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Len(t, stored.Nodes, 2)
	assert.Empty(t, stored.Connections)

	t.Run("id mismatch", func(t *testing.T) {
		other := edited.Clone()
		other.ID = "someone-else"
		body, _ := json.Marshal(other)
		rec := do(t, h, http.MethodPut, path, string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("self connection rejected", func(t *testing.T) {
		bad := edited.Clone()
		n := bad.Nodes[0].ID
		bad.Connections = append(bad.Connections, &workflow.Connection{ID: "c-self", Source: n, Target: n})
		body, _ := json.Marshal(bad)
		rec := do(t, h, http.MethodPut, path, string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		stored, err := svc.Get(context.Background(), wf.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Connections)
	})
}

func TestDeleteAndDuplicate(t *testing.T) {
	h, svc := newTestServer(t)
	wf := seedDemo(t, svc)

	rec := do(t, h, http.MethodPost, "/api/v1/workflows/"+wf.ID.String()+"/duplicate", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	dup := decode[workflow.Workflow](t, rec)
	assert.NotEqual(t, wf.ID, dup.ID)
	assert.Equal(t, "Demo (Copy)", dup.Name)
	assert.Len(t, dup.Nodes, 2)

	rec = do(t, h, http.MethodDelete, "/api/v1/workflows/"+wf.ID.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	all, err := svc.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, dup.ID, all[0].ID)
}

func TestExportImport(t *testing.T) {
	h, svc := newTestServer(t)
	wf := seedDemo(t, svc)
	path := "/api/v1/workflows/" + wf.ID.String() + "/export"

	rec := do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), wf.ID.String()+".json")
	exported := rec.Body.String()

	rec = do(t, h, http.MethodGet, path+"?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "name: Demo")

	rec = do(t, h, http.MethodGet, path+"?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/workflows/import", exported)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	imported := decode[workflow.Workflow](t, rec)
	assert.NotEqual(t, wf.ID, imported.ID)
	assert.Equal(t, wf.Name, imported.Name)
	assert.Len(t, imported.Nodes, 2)
	assert.Len(t, imported.Connections, 1)

	all, err := svc.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListNodeTypes(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/node-types?q=sql", "")
	require.Equal(t, http.StatusOK, rec.Code)
	templates := decode[[]registry.Template](t, rec)
	require.Len(t, templates, 1)
	assert.Equal(t, "SQL Query", templates[0].Label)
	assert.Equal(t, "tools", templates[0].Category)

	rec = do(t, h, http.MethodGet, "/api/v1/node-types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]registry.Template](t, rec), len(registry.Default().Templates()))
}

func TestMetricsEndpoint(t *testing.T) {
	h, svc := newTestServer(t)
	wf := seedDemo(t, svc)

	do(t, h, http.MethodGet, "/api/v1/workflows/"+wf.ID.String(), "")
	do(t, h, http.MethodGet, "/api/v1/workflows/missing", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `aihub_api_http_requests_total{method="GET",route="/api/v1/workflows/{id}",status="200"} 1`)
	assert.Contains(t, body, `aihub_api_http_requests_total{method="GET",route="/api/v1/workflows/{id}",status="404"} 1`)
	assert.Contains(t, body, `aihub_api_workflow_operations_total{operation="get",result="error"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, WithAllowedOrigins([]string{"http://localhost:3003"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/workflows", nil)
	req.Header.Set("Origin", "http://localhost:3003")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3003", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/workflows", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	svc := service.New(storage.NewMemoryRepository(), zap.NewNop())
	srv := New(svc, registry.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	assert.NoError(t, <-done)
}
