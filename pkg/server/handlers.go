package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dshills/aihub/pkg/errors"
	"github.com/dshills/aihub/pkg/validation"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateWorkflowRequest is the body of POST /workflows
type CreateWorkflowRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status matching err's kind
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errors.Classify(err)
	status := errors.Status(kind)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}

	writeJSON(w, status, ErrorResponse{Error: string(kind), Message: err.Error()})
}

func workflowID(r *http.Request) workflow.WorkflowID {
	return workflow.WorkflowID(mux.Vars(r)["id"])
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := s.svc.GetAll(r.Context())
	s.metrics.observeOperation("list", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if wfs == nil {
		wfs = make([]*workflow.Workflow, 0)
	}
	writeJSON(w, http.StatusOK, wfs)
}

func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.KindValidation, fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, errors.New(errors.KindValidation, "workflow name is required"))
		return
	}
	for _, tag := range req.Tags {
		if err := validation.ValidateIdentifier("tag", tag); err != nil {
			s.writeError(w, r, errors.Wrap(errors.KindValidation, err))
			return
		}
	}

	wf, err := s.svc.Create(r.Context(), req.Name, req.Description, req.Tags)
	s.metrics.observeOperation("create", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.svc.Get(r.Context(), workflowID(r))
	s.metrics.observeOperation("get", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// updateWorkflow upserts the whole graph under the id in the path
func (s *Server) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := workflowID(r)

	var wf workflow.Workflow
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&wf); err != nil {
		s.writeError(w, r, errors.Wrap(errors.KindValidation, fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if wf.ID != "" && wf.ID != id {
		s.writeError(w, r, errors.New(errors.KindValidation, fmt.Sprintf("body id %s does not match path id %s", wf.ID, id)))
		return
	}
	wf.ID = id
	if err := wf.Validate(); err != nil {
		s.writeError(w, r, errors.Wrap(errors.KindValidation, err))
		return
	}

	err := s.svc.Save(r.Context(), &wf)
	s.metrics.observeOperation("save", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &wf)
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Delete(r.Context(), workflowID(r))
	s.metrics.observeOperation("delete", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) duplicateWorkflow(w http.ResponseWriter, r *http.Request) {
	dup, err := s.svc.Duplicate(r.Context(), workflowID(r))
	s.metrics.observeOperation("duplicate", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

// exportWorkflow returns the document as an attachment, JSON unless
// ?format=yaml
func (s *Server) exportWorkflow(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "yaml" {
		s.writeError(w, r, errors.New(errors.KindValidation, fmt.Sprintf("unsupported export format %q", format)))
		return
	}

	wf, err := s.svc.Get(r.Context(), workflowID(r))
	if err != nil {
		s.metrics.observeOperation("export", err)
		s.writeError(w, r, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	if format == "yaml" {
		data, err = s.svc.ExportYAML(wf)
		contentType = "application/yaml"
	} else {
		data, err = s.svc.Export(wf)
		contentType = "application/json"
	}
	s.metrics.observeOperation("export", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, wf.ID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) importWorkflow(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.KindValidation, fmt.Errorf("failed to read document: %w", err)))
		return
	}

	wf := s.svc.Import(r.Context(), data)
	if wf == nil {
		s.metrics.observeOperation("import", errors.New(errors.KindValidation, "import failed"))
		s.writeError(w, r, errors.New(errors.KindValidation, "invalid workflow document"))
		return
	}
	s.metrics.observeOperation("import", nil)
	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) listNodeTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Search(r.URL.Query().Get("q")))
}
