package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPhaseOnePrompt(t *testing.T) {
	req, err := Normalize(validEvent())
	require.NoError(t, err)

	prompt := BuildPhaseOnePrompt(req, 105)

	assert.Contains(t, prompt, "Dana Whitfield")
	assert.Contains(t, prompt, "Harbor Lane Bistro")
	assert.Contains(t, prompt, "Estimated size: 1500")
	assert.Contains(t, prompt, "Estimated duration: 105 minutes")
	assert.Contains(t, prompt, "Booking reference: bk_8842")
	assert.Contains(t, prompt, "BEGIN WORKFLOW DATA")
	assert.Contains(t, prompt, "END WORKFLOW DATA")
	for _, key := range PhaseOneSchema.RequiredKeys() {
		assert.Contains(t, prompt, key+":")
	}
}

func TestBuildPhaseOnePrompt_WithoutCompanyURL(t *testing.T) {
	event := validEvent()
	delete(event, "company_url")
	req, err := Normalize(event)
	require.NoError(t, err)

	prompt := BuildPhaseOnePrompt(req, 105)
	assert.Contains(t, prompt, "Find the company's official website.")
	assert.NotContains(t, prompt, "Company URL (as entered)")
}

func TestBuildPhaseTwoPrompt(t *testing.T) {
	req, err := Normalize(validEvent())
	require.NoError(t, err)

	prompt, err := BuildPhaseTwoPrompt(req, 105, map[string]string{
		KeyRowID:      "57",
		KeyCompanyURL: "https://harborlanebistro.com",
		KeySheetURL:   "https://docs.google.com/spreadsheets/d/abc123",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Company website: https://harborlanebistro.com")
	assert.Contains(t, prompt, "Spreadsheet row: 57")
	assert.Contains(t, prompt, "Spreadsheet: https://docs.google.com/spreadsheets/d/abc123")
	assert.Contains(t, prompt, "Update spreadsheet row 57")
}

func TestBuildPhaseTwoPrompt_MissingKeys(t *testing.T) {
	req, err := Normalize(validEvent())
	require.NoError(t, err)

	_, err = BuildPhaseTwoPrompt(req, 105, map[string]string{KeyRowID: "57", KeyCompanyURL: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingExtraction))

	var missingErr *MissingExtractionError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, []string{KeyCompanyURL}, missingErr.MissingKeys)
	assert.Equal(t, PhaseOneSchemaVersion, missingErr.SchemaVersion)
}
