package workflow

import (
	"sort"
	"strings"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// textStrategy reads the answer text from one known response location.
// present reports whether the location exists at all, even when it holds no
// usable text, for the diagnostics of unresolvable responses.
type textStrategy struct {
	name    string
	resolve func(raw models.RawResponse) (text string, present bool)
}

// textStrategies is the single place that knows where the completion service
// has put its answer across versions. Order is priority order.
var textStrategies = []textStrategy{
	{"output_text", topLevelString("output_text")},
	{"output[].content[].text", responsesOutputText},
	{"choices[0].message.content", chatCompletionText},
	{"text", topLevelString("text")},
	{"response", topLevelString("response")},
	{"content", topLevelString("content")},
	{"candidates[0].content.parts[].text", generateContentText},
	{"result", topLevelString("result")},
}

// Resolution is the outcome of resolving a raw response.
type Resolution struct {
	Text          string
	Matched       string
	Checked       []string
	Present       []string
	AvailableKeys []string
}

// OK reports whether text was found.
func (r Resolution) OK() bool { return r.Matched != "" }

// Resolve tries each strategy in order and returns the first non-empty text.
// No match is a normal outcome, returned with diagnostics.
func Resolve(raw models.RawResponse) Resolution {
	res := Resolution{AvailableKeys: sortedKeys(raw)}
	for _, s := range textStrategies {
		res.Checked = append(res.Checked, s.name)
		text, present := s.resolve(raw)
		if present {
			res.Present = append(res.Present, s.name)
		}
		if strings.TrimSpace(text) != "" {
			res.Text = text
			res.Matched = s.name
			return res
		}
	}
	return res
}

// ResolveText returns the response text, or false when no candidate matched.
func ResolveText(raw models.RawResponse) (string, bool) {
	res := Resolve(raw)
	return res.Text, res.OK()
}

func topLevelString(key string) func(models.RawResponse) (string, bool) {
	return func(raw models.RawResponse) (string, bool) {
		v, ok := raw[key]
		if !ok || v == nil {
			return "", false
		}
		s, _ := v.(string)
		return s, true
	}
}

// responsesOutputText joins the output_text parts of every message item.
func responsesOutputText(raw models.RawResponse) (string, bool) {
	items, ok := raw["output"].([]interface{})
	if !ok {
		return "", raw["output"] != nil
	}
	var parts []string
	for _, item := range items {
		msg, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _ := msg["type"].(string); t != "" && t != "message" {
			continue
		}
		contents, _ := msg["content"].([]interface{})
		for _, c := range contents {
			part, ok := c.(map[string]interface{})
			if !ok {
				continue
			}
			if t, _ := part["type"].(string); t != "" && t != "output_text" && t != "text" {
				continue
			}
			if s, ok := part["text"].(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, "\n"), true
}

func chatCompletionText(raw models.RawResponse) (string, bool) {
	choices, ok := raw["choices"].([]interface{})
	if !ok {
		return "", raw["choices"] != nil
	}
	if len(choices) == 0 {
		return "", true
	}
	choice, _ := choices[0].(map[string]interface{})
	message, _ := choice["message"].(map[string]interface{})
	s, _ := message["content"].(string)
	return s, true
}

func generateContentText(raw models.RawResponse) (string, bool) {
	candidates, ok := raw["candidates"].([]interface{})
	if !ok {
		return "", raw["candidates"] != nil
	}
	if len(candidates) == 0 {
		return "", true
	}
	candidate, _ := candidates[0].(map[string]interface{})
	content, _ := candidate["content"].(map[string]interface{})
	parts, _ := content["parts"].([]interface{})
	var texts []string
	for _, p := range parts {
		part, _ := p.(map[string]interface{})
		if s, ok := part["text"].(string); ok {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, ""), true
}

func sortedKeys(raw models.RawResponse) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
