package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
	"github.com/Lllllllleong/bookingworkflow/internal/workflow"
)

// MappingConfirmationPath is the route of the mapping-confirmation workflow.
const MappingConfirmationPath = "/workflow/mapping-confirmation"

// Runner executes one workflow run.
type Runner interface {
	Run(ctx context.Context, event models.InboundEvent) (*models.WorkflowResult, error)
}

// Handler serves the mapping-confirmation workflow over HTTP.
type Handler struct {
	runner Runner
	logger *zap.Logger
}

func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, logger: logger.With(zap.String("component", "api"))}
}

// NewMux routes the workflow and the metrics endpoint. The function root
// also serves the workflow, since Cloud Functions invokes it on "/". Any
// other path is a 404.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle(MappingConfirmationPath, h)
	mux.Handle("/{$}", h)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var event models.InboundEvent
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&event); err != nil {
		h.logger.Warn("Could not decode request body", zap.Error(err))
		writeJSON(w, h.logger, http.StatusBadRequest, models.ValidationErrorResponse{
			Error: "invalid request body",
			Errors: []models.ValidationError{{
				Field:   "body",
				Code:    models.CodeInvalidType,
				Message: "request body must be a JSON object",
			}},
		})
		return
	}
	if event == nil {
		event = models.InboundEvent{}
	}

	// The run keeps going if the caller hangs up: remote side effects may
	// already be under way.
	result, err := h.runner.Run(context.WithoutCancel(r.Context()), event)
	if err != nil {
		status, body := failureBody(err)
		writeJSON(w, h.logger, status, body)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// failureBody maps a run error to its HTTP status and body.
func failureBody(err error) (int, interface{}) {
	var validationErr *workflow.ValidationFailedError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, models.ValidationErrorResponse{
			Error:  "validation failed",
			Errors: validationErr.Errors,
		}
	}

	var runErr *workflow.RunError
	if errors.As(err, &runErr) {
		return http.StatusInternalServerError, models.FailureResponse{
			Error:   runErr.Err.Error(),
			Kind:    runErr.Kind(),
			Details: runErr.Details(),
		}
	}
	return http.StatusInternalServerError, models.FailureResponse{
		Error:   err.Error(),
		Kind:    workflow.KindInternal,
		Details: map[string]interface{}{"message": err.Error()},
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
