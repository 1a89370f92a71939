package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
	"github.com/Lllllllleong/bookingworkflow/internal/workflow"
)

type stubCompleter struct {
	texts []string
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, _ models.CompletionRequest) (models.RawResponse, error) {
	s.calls++
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.calls > len(s.texts) {
		return nil, errors.New("unexpected call")
	}
	return models.RawResponse{"output_text": s.texts[s.calls-1]}, nil
}

type memBlobs struct{ err error }

func (m *memBlobs) Save(_ context.Context, path string, _ []byte, _ string, _ map[string]string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "gs://reports/" + path, nil
}

type memDocs struct {
	err    error
	merged map[string]map[string]interface{}
}

func (m *memDocs) Merge(_ context.Context, key string, fields map[string]interface{}) error {
	if m.err != nil {
		return m.err
	}
	if m.merged == nil {
		m.merged = map[string]map[string]interface{}{}
	}
	m.merged[key] = fields
	return nil
}

const (
	phaseOneReply = "Row added, email sent.\n\n=== BEGIN WORKFLOW DATA ===\nrow-id: 57\ncompany-url: https://harborlanebistro.com\n=== END WORKFLOW DATA ==="
	phaseTwoReply = "# Harbor Lane Bistro\n\nWebsite: https://harborlanebistro.com\nMenu: https://harborlanebistro.com/menu"
)

const validBody = `{
	"contact_name": "Dana Whitfield",
	"contact_phone": "+1 415 555 0133",
	"company_name": "Harbor Lane Bistro",
	"company_url": "harborlanebistro.com",
	"address": "12 Harbor Lane, Sausalito, CA",
	"date": "2026-11-03",
	"time": "10:30",
	"estimated_size": "1500",
	"record_id": "bk_8842"
}`

type harness struct {
	completer *stubCompleter
	docs      *memDocs
	server    http.Handler
}

func newHarness(texts []string, blobErr error) *harness {
	completer := &stubCompleter{texts: texts}
	docs := &memDocs{}
	persister := workflow.NewResultPersister(&memBlobs{err: blobErr}, docs, nil, "reports", zap.NewNop())
	orch := workflow.NewOrchestrator(completer, persister, workflow.Tools{}, zap.NewNop(),
		workflow.WithRunIDs(func() string { return "run-1" }))
	return &harness{
		completer: completer,
		docs:      docs,
		server:    NewMux(NewHandler(orch, zap.NewNop())),
	}
}

func (h *harness) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, MappingConfirmationPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

func TestMappingConfirmation_Success(t *testing.T) {
	h := newHarness([]string{phaseOneReply, phaseTwoReply}, nil)

	rec := h.post(t, validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result models.WorkflowResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 105.0, result.EstimatedDurationMinutes)
	require.NotNil(t, result.PersistenceOutcome.Storage)
	assert.Equal(t, "gs://reports/reports/bk_8842/run-1.md", *result.PersistenceOutcome.Storage)
	assert.True(t, result.PersistenceOutcome.Document.Merge)
	assert.Nil(t, result.PersistenceOutcome.Error)
	assert.Equal(t, "https://harborlanebistro.com/menu", result.PhaseTwo.URLs["menu"])
	assert.Equal(t, 2, h.completer.calls)
	assert.Contains(t, h.docs.merged, "bk_8842")
}

func TestMappingConfirmation_MissingContactName(t *testing.T) {
	h := newHarness(nil, nil)
	body := strings.Replace(validBody, `"contact_name": "Dana Whitfield",`, "", 1)

	rec := h.post(t, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "contact_name", resp.Errors[0].Field)
	assert.Equal(t, models.CodeRequired, resp.Errors[0].Code)
	assert.Zero(t, h.completer.calls)
}

func TestMappingConfirmation_MissingRowID(t *testing.T) {
	h := newHarness([]string{"BEGIN WORKFLOW DATA\ncompany-url: https://harborlanebistro.com\nEND WORKFLOW DATA"}, nil)

	rec := h.post(t, validBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp models.FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, workflow.KindMissingExtraction, resp.Kind)
	assert.Equal(t, string(workflow.StatePhase2Gate), resp.Details["state"])
	assert.Equal(t, []interface{}{workflow.KeyRowID}, resp.Details["missingKeys"])
	assert.Equal(t, 1, h.completer.calls)
}

func TestMappingConfirmation_PartialPersistenceIsStillOK(t *testing.T) {
	h := newHarness([]string{phaseOneReply, phaseTwoReply}, errors.New("bucket gone"))

	rec := h.post(t, validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.WorkflowResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Nil(t, result.PersistenceOutcome.Storage)
	assert.Equal(t, models.StatusFailed, result.PersistenceOutcome.Blob.Status)
	assert.True(t, result.PersistenceOutcome.Document.Merge)
	require.NotNil(t, result.PersistenceOutcome.Error)
	assert.Contains(t, *result.PersistenceOutcome.Error, "bucket gone")
}

func TestMappingConfirmation_ClientDisconnectDoesNotAbortRun(t *testing.T) {
	h := newHarness([]string{phaseOneReply, phaseTwoReply}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, MappingConfirmationPath, strings.NewReader(validBody)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, h.completer.calls)
}

func TestMappingConfirmation_BadRequests(t *testing.T) {
	h := newHarness(nil, nil)

	rec := h.post(t, `{"contact_name": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(t, `["not", "an", "object"]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(t, `null`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, h.completer.calls)
}

func TestMappingConfirmation_MethodNotAllowed(t *testing.T) {
	h := newHarness(nil, nil)

	req := httptest.NewRequest(http.MethodGet, MappingConfirmationPath, nil)
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestMux_Routes(t *testing.T) {
	h := newHarness([]string{phaseOneReply, phaseTwoReply}, nil)

	req := httptest.NewRequest(http.MethodGet, "/workflow/mapping-confirmaton", nil)
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(validBody))
	rec = httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, h.completer.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness([]string{phaseOneReply, phaseTwoReply}, nil)
	h.post(t, validBody)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workflow_runs_total")
}
