package workflow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// BuildPhaseOnePrompt asks the model to record the booking through the
// tool-broker and to report the identifiers it created in a sentinel block.
func BuildPhaseOnePrompt(req models.ValidatedRequest, estimatedMinutes float64) string {
	var parts []string

	parts = append(parts, "You are the booking assistant for an on-site venue mapping service. A customer has confirmed a mapping appointment.")
	parts = append(parts, "\nBooking:")
	parts = append(parts, bookingLines(req, estimatedMinutes)...)

	parts = append(parts, "\nTasks:")
	parts = append(parts, "1. Add the booking as a new row in the bookings spreadsheet.")
	parts = append(parts, "2. Send the contact a short confirmation message with the date, time and estimated duration.")
	parts = append(parts, "3. Add the visit to the mapping calendar.")
	if req.CompanyURL == "" {
		parts = append(parts, "4. Find the company's official website.")
	} else {
		parts = append(parts, "4. Confirm the company's official website, starting from the URL above.")
	}

	parts = append(parts, "\nWhen you are done, end your answer with exactly this block, filled in:")
	parts = append(parts, PhaseOneSchema.instructions())
	parts = append(parts, "Use only the keys shown. Do not add commentary inside the block.")

	return strings.Join(parts, "\n")
}

// BuildPhaseTwoPrompt asks for the research dossier and for the spreadsheet
// row from phase one to be updated. It refuses to build a prompt when the
// extraction lacks a mandatory key, because the remote actions are keyed on them.
func BuildPhaseTwoPrompt(req models.ValidatedRequest, estimatedMinutes float64, extraction map[string]string) (string, error) {
	var missing []string
	for _, key := range PhaseOneSchema.RequiredKeys() {
		if strings.TrimSpace(extraction[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", &MissingExtractionError{
			SchemaVersion: PhaseOneSchema.Version,
			MissingKeys:   missing,
			FoundKeys:     sortedFieldKeys(extraction),
			BlockFound:    len(extraction) > 0,
		}
	}

	var parts []string
	parts = append(parts, "You are preparing a research dossier for an upcoming on-site venue mapping visit.")
	parts = append(parts, "\nBooking:")
	parts = append(parts, bookingLines(req, estimatedMinutes)...)
	parts = append(parts, fmt.Sprintf("- Company website: %s", extraction[KeyCompanyURL]))
	parts = append(parts, fmt.Sprintf("- Spreadsheet row: %s", extraction[KeyRowID]))
	if sheet := extraction[KeySheetURL]; sheet != "" {
		parts = append(parts, fmt.Sprintf("- Spreadsheet: %s", sheet))
	}

	parts = append(parts, "\nTasks:")
	parts = append(parts, "1. Research the company starting from its website: what it does, opening hours, layout hints useful for mapping.")
	parts = append(parts, "2. List the links you relied on, one per line, labelled as Website, Menu, Reviews, Booking, Instagram, Facebook or Maps.")
	parts = append(parts, fmt.Sprintf("3. Update spreadsheet row %s with a one-line summary of the dossier.", extraction[KeyRowID]))
	parts = append(parts, "\nWrite the dossier in Markdown. It is stored as-is for the mapping crew.")

	return strings.Join(parts, "\n"), nil
}

func bookingLines(req models.ValidatedRequest, estimatedMinutes float64) []string {
	lines := []string{
		fmt.Sprintf("- Contact: %s (%s)", req.ContactName, req.ContactPhone),
	}
	if req.ContactEmail != "" {
		lines = append(lines, fmt.Sprintf("- Email: %s", req.ContactEmail))
	}
	lines = append(lines,
		fmt.Sprintf("- Company: %s", req.CompanyName),
	)
	if req.CompanyURL != "" {
		lines = append(lines, fmt.Sprintf("- Company URL (as entered): %s", req.CompanyURL))
	}
	lines = append(lines,
		fmt.Sprintf("- Address: %s", req.Address),
		fmt.Sprintf("- Date and time: %s %s", req.Date, req.Time),
		fmt.Sprintf("- Estimated size: %s", strconv.FormatFloat(req.EstimatedSize, 'f', -1, 64)),
		fmt.Sprintf("- Estimated duration: %s minutes", strconv.FormatFloat(estimatedMinutes, 'f', -1, 64)),
	)
	if req.Notes != "" {
		lines = append(lines, fmt.Sprintf("- Notes: %s", req.Notes))
	}
	if req.RecordID != "" {
		lines = append(lines, fmt.Sprintf("- Booking reference: %s", req.RecordID))
	}
	return lines
}

func sortedFieldKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
