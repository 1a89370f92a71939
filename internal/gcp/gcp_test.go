package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("connection reset")))
}

func TestNewWorkflowTrigger_Parent(t *testing.T) {
	trigger := NewWorkflowTrigger(nil, "bookings-prod", "us-central1", "mapping-dispatch", zap.NewNop())
	assert.Equal(t, "projects/bookings-prod/locations/us-central1/workflows/mapping-dispatch", trigger.parent)
}
