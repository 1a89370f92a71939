package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

type fakeBlobStore struct {
	err         error
	calls       int
	path        string
	content     string
	contentType string
	metadata    map[string]string
}

func (f *fakeBlobStore) Save(_ context.Context, path string, content []byte, contentType string, metadata map[string]string) (string, error) {
	f.calls++
	f.path = path
	f.content = string(content)
	f.contentType = contentType
	f.metadata = metadata
	if f.err != nil {
		return "", f.err
	}
	return "gs://reports-bucket/" + path, nil
}

type fakeDocumentStore struct {
	err    error
	calls  int
	key    string
	fields map[string]interface{}
}

func (f *fakeDocumentStore) Merge(_ context.Context, key string, fields map[string]interface{}) error {
	f.calls++
	f.key = key
	f.fields = fields
	return f.err
}

type fakeHandoff struct {
	err     error
	calls   int
	payload map[string]interface{}
}

func (f *fakeHandoff) Trigger(_ context.Context, payload map[string]interface{}) error {
	f.calls++
	f.payload = payload
	return f.err
}

var testMeta = PersistMeta{
	RunID:  "run-1",
	Fields: map[string]string{KeyRowID: "57", KeyCompanyURL: "https://harborlanebistro.com"},
}

func TestPersist_AllSucceed(t *testing.T) {
	blobs := &fakeBlobStore{}
	docs := &fakeDocumentStore{}
	handoff := &fakeHandoff{}
	p := NewResultPersister(blobs, docs, handoff, "/reports/", zap.NewNop())

	urls := map[string]string{"website": "https://harborlanebistro.com"}
	outcome := p.Persist(context.Background(), "bk_8842", "# Dossier", urls, testMeta)

	assert.Equal(t, "reports/bk_8842/run-1.md", blobs.path)
	assert.Equal(t, "# Dossier", blobs.content)
	assert.Equal(t, reportContentType, blobs.contentType)
	assert.Equal(t, "run-1", blobs.metadata["runId"])

	require.NotNil(t, outcome.Storage)
	assert.Equal(t, "gs://reports-bucket/reports/bk_8842/run-1.md", *outcome.Storage)
	assert.Equal(t, models.StatusSucceeded, outcome.Blob.Status)
	assert.Equal(t, models.StatusSucceeded, outcome.Document.Status)
	assert.True(t, outcome.Document.Merge)
	assert.Equal(t, models.StatusSucceeded, outcome.Handoff.Status)
	assert.Nil(t, outcome.Error)
	assert.False(t, outcome.Failed())

	assert.Equal(t, "bk_8842", docs.key)
	confirmation, ok := docs.fields[models.RecordFieldMappingConfirmation].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.MappingStatusConfirmed, confirmation["status"])
	assert.Equal(t, "57", confirmation["rowId"])
	assert.Equal(t, map[string]interface{}{"website": "https://harborlanebistro.com"}, confirmation["urls"])
	assert.Equal(t, *outcome.Storage, confirmation["reportUri"])

	assert.Equal(t, "bk_8842", handoff.payload["recordId"])
	assert.Equal(t, *outcome.Storage, handoff.payload["reportUri"])
}

func TestPersist_BlobFailsDocumentStillMerged(t *testing.T) {
	blobs := &fakeBlobStore{err: errors.New("bucket unavailable")}
	docs := &fakeDocumentStore{}
	p := NewResultPersister(blobs, docs, nil, "reports", zap.NewNop())

	outcome := p.Persist(context.Background(), "bk_8842", "# Dossier", map[string]string{}, testMeta)

	assert.Nil(t, outcome.Storage)
	assert.Equal(t, models.StatusFailed, outcome.Blob.Status)
	assert.Contains(t, outcome.Blob.Reason, "bucket unavailable")
	assert.Equal(t, 1, docs.calls)
	assert.Equal(t, models.StatusSucceeded, outcome.Document.Status)
	assert.Equal(t, models.StatusNotAttempted, outcome.Handoff.Status)
	assert.Equal(t, "handoff not configured", outcome.Handoff.Reason)
	require.NotNil(t, outcome.Error)
	assert.Contains(t, *outcome.Error, "persist blob")
	assert.True(t, outcome.Failed())

	confirmation := docs.fields[models.RecordFieldMappingConfirmation].(map[string]interface{})
	assert.NotContains(t, confirmation, "reportUri")
}

func TestPersist_DocumentFailsBlobKept(t *testing.T) {
	blobs := &fakeBlobStore{}
	docs := &fakeDocumentStore{err: errors.New("permission denied")}
	handoff := &fakeHandoff{err: errors.New("workflow not found")}
	p := NewResultPersister(blobs, docs, handoff, "", zap.NewNop())

	outcome := p.Persist(context.Background(), "bk/88 42", "text", nil, testMeta)

	assert.Equal(t, "bk_88_42/run-1.md", blobs.path)
	require.NotNil(t, outcome.Storage)
	assert.Equal(t, models.StatusSucceeded, outcome.Blob.Status)
	assert.Equal(t, models.StatusFailed, outcome.Document.Status)
	assert.False(t, outcome.Document.Merge)
	assert.Equal(t, models.StatusFailed, outcome.Handoff.Status)
	require.NotNil(t, outcome.Error)
	assert.Contains(t, *outcome.Error, "persist document: permission denied")
	assert.Contains(t, *outcome.Error, "persist handoff: workflow not found")
}

func TestPersist_NoRecordIDSkipsEverything(t *testing.T) {
	blobs := &fakeBlobStore{}
	docs := &fakeDocumentStore{}
	handoff := &fakeHandoff{}
	p := NewResultPersister(blobs, docs, handoff, "reports", zap.NewNop())

	outcome := p.Persist(context.Background(), "  ", "text", nil, testMeta)

	assert.Zero(t, blobs.calls)
	assert.Zero(t, docs.calls)
	assert.Zero(t, handoff.calls)
	assert.Nil(t, outcome.Storage)
	assert.Nil(t, outcome.Error)
	assert.Equal(t, models.StatusNotAttempted, outcome.Blob.Status)
	assert.Equal(t, skippedNoRecordID, outcome.Document.Reason)
	assert.False(t, outcome.Failed())
}
