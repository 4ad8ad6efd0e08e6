package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/veogen/internal/generator"
	"github.com/maauso/veogen/internal/job"
	"github.com/maauso/veogen/internal/prompt"
	"github.com/maauso/veogen/internal/tools"
)

// ServiceName is reported by the health and root endpoints.
const ServiceName = "veogen"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	toolbox   *tools.Toolbox
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(toolbox *tools.Toolbox, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		toolbox:   toolbox,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Backend:   h.toolbox.Backend(),
		Model:     h.toolbox.Model(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Root handles GET / requests.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	behavior := fmt.Sprintf("generates %d variations per request and waits for them", job.DefaultVariationCount)
	if h.toolbox.Async() {
		behavior = "generation tools return a task id; poll it with get_task_status"
	}

	writeJSON(w, http.StatusOK, RootResponse{
		Message:         "veogen video generation service",
		Status:          "running",
		Backend:         h.toolbox.Backend(),
		Model:           h.toolbox.Model(),
		DefaultBehavior: behavior,
		Tools:           tools.Names,
		Endpoints: map[string]string{
			"tools":   "POST /tools/{tool}",
			"tasks":   "POST /tasks",
			"task":    "GET /tasks/{id}",
			"videos":  "GET /videos/{filename}",
			"health":  "GET /health",
			"metrics": "GET /metrics",
			"mcp":     "/mcp",
		},
	})
}

// ToolCall handles POST /tools/{tool} requests. Tool failures are reported
// inside the result with a 200 status so webhook callers can relay them.
func (h *Handlers) ToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("tool")
	if name == "" {
		writeError(w, http.StatusBadRequest, "tool name is required", "MISSING_TOOL")
		return
	}

	var req ToolCallRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode request body",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	out, err := h.toolbox.Call(r.Context(), name, tools.Params(req.Parameters))
	if err != nil {
		h.logger.Warn("tool call failed",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		out = tools.ErrorResult{Error: err.Error()}
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		h.logger.Error("failed to encode tool result",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to encode result", "ENCODING_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, ToolCallResponse{Result: string(encoded)})
}

// CreateTask handles POST /tasks requests. The request always runs in the
// background; the response carries the task id.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	jobReq := req.toJobRequest()
	if jobReq.ImagePath != "" {
		src, err := generator.ResolveImagePath(jobReq.ImagePath)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_IMAGE_PATH")
			return
		}
		jobReq.ImagePath = src
	}

	dispatched, err := h.toolbox.Dispatch(r.Context(), jobReq)
	if errors.Is(err, job.ErrServiceClosed) {
		writeError(w, http.StatusServiceUnavailable, err.Error(), "SHUTTING_DOWN")
		return
	}
	if err != nil {
		h.logger.Error("failed to create task",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create task", "TASK_CREATION_FAILED")
		return
	}

	writeJSON(w, http.StatusAccepted, dispatched)
}

// GetTask handles GET /tasks/{id} requests.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task ID is required", "MISSING_TASK_ID")
		return
	}

	status, err := h.toolbox.TaskStatus(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, tools.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found", "TASK_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get task",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get task", "TASK_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (req CreateTaskRequest) toJobRequest() job.Request {
	out := job.Request{
		Prompt:         req.Prompt,
		AspectRatio:    prompt.ParseAspectRatio(req.AspectRatio),
		PersonPolicy:   prompt.ParsePersonPolicy(req.PersonGeneration),
		Style:          prompt.ParseStyle(req.Style),
		VariationCount: req.Variations,
		NegativePrompt: req.NegativePrompt,
		ImagePath:      req.ImagePath,
		Budget:         job.BudgetBasic,
	}
	if out.VariationCount == 0 {
		out.VariationCount = job.DefaultVariationCount
	}
	if req.Extended {
		out.Budget = job.BudgetExtended
	}
	return out
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
