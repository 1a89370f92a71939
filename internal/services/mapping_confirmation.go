package services

import (
	"context"
	"net/http"

	"github.com/Lllllllleong/bookingworkflow/internal/api"
)

// MappingConfirmationFunction serves the mapping-confirmation workflow over HTTP.
type MappingConfirmationFunction struct {
	handler http.Handler
}

// NewMappingConfirmation builds the function from configuration.
func NewMappingConfirmation(ctx context.Context) (*MappingConfirmationFunction, error) {
	rt, err := newRuntime(ctx)
	if err != nil {
		return nil, err
	}
	return &MappingConfirmationFunction{
		handler: api.NewMux(api.NewHandler(rt.orchestrator, rt.logger)),
	}, nil
}

func (f *MappingConfirmationFunction) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.handler.ServeHTTP(w, r)
}
