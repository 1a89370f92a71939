package main

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/bookingworkflow/internal/services"
)

var (
	mappingInstance *services.MappingConfirmationFunction
	once            sync.Once
	initErr         error
)

func init() {
	// "HandleMappingConfirmation" is the entry point name configured in GCP.
	functions.HTTP("HandleMappingConfirmation", handleMappingConfirmation)
}

// main is required by the Go Functions Framework.
func main() {}

func handleMappingConfirmation(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		mappingInstance, initErr = services.NewMappingConfirmation(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: mapping-confirmation initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	mappingInstance.ServeHTTP(w, r)
}
