package workflow

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Marker lines delimiting the sentinel block. Decoration such as "---" or
// "###" around the words is ignored.
const (
	blockBegin = "BEGIN WORKFLOW DATA"
	blockEnd   = "END WORKFLOW DATA"
)

// BlockResult is either Parsed or Unparseable.
type BlockResult interface {
	isBlockResult()
}

// Parsed holds the recognised keys of a sentinel block.
type Parsed struct {
	Fields map[string]string
}

// Unparseable is returned when no usable sentinel block exists.
type Unparseable struct {
	RawText    string
	Reason     string
	BlockFound bool
}

func (Parsed) isBlockResult()      {}
func (Unparseable) isBlockResult() {}

// ParseBlock looks for the last sentinel block in text and reads its
// recognised KEY: value lines. A block without an end marker runs to the end
// of the text. It never panics, whatever the input.
func ParseBlock(text string) BlockResult {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if markerText(line) == blockBegin {
			start = i
		}
	}
	if start < 0 {
		return Unparseable{RawText: text, Reason: "no sentinel block found"}
	}

	fields := map[string]string{}
	for _, line := range lines[start+1:] {
		if markerText(line) == blockEnd {
			break
		}
		key, value, ok := splitKeyValue(line)
		if !ok || !recognizedKeys[key] {
			continue
		}
		if _, dup := fields[key]; dup {
			continue
		}
		fields[key] = value
	}

	if len(fields) == 0 {
		return Unparseable{RawText: text, Reason: "sentinel block contains no recognised keys", BlockFound: true}
	}
	return Parsed{Fields: fields}
}

// ExtractFields returns the parsed block fields, or an empty map.
func ExtractFields(text string) map[string]string {
	if parsed, ok := ParseBlock(text).(Parsed); ok {
		out := make(map[string]string, len(parsed.Fields))
		for k, v := range parsed.Fields {
			out[k] = v
		}
		return out
	}
	return map[string]string{}
}

// FormatBlock renders fields as a sentinel block ParseBlock reads back unchanged.
func FormatBlock(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(blockBegin)
	b.WriteByte('\n')
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.ReplaceAll(fields[k], "\n", " "))
		b.WriteByte('\n')
	}
	b.WriteString(blockEnd)
	return b.String()
}

func markerText(line string) string {
	return strings.ToUpper(strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "-=#*_`>[] ")))
}

func splitKeyValue(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*• \t")
	rawKey, rawValue, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key := normalizeKey(rawKey)
	value := trimValue(rawValue)
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

// trimValue strips whitespace and emphasis or quote characters from both ends
// until nothing more comes off, so a formatted value parses back unchanged.
func trimValue(raw string) string {
	value := strings.TrimSpace(raw)
	for {
		next := strings.TrimSpace(strings.Trim(value, "*`\"'"))
		if next == value {
			return value
		}
		value = next
	}
}

func normalizeKey(raw string) string {
	key := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "*`\"'"))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(strings.TrimSpace(key))
	return key
}

var urlPattern = regexp.MustCompile("https?://[^\\s<>\"'`\\[\\]()]+")

type urlLabel struct {
	label    string
	keywords []string
}

// labelKeywords are checked against the text preceding a URL on its line.
var labelKeywords = []urlLabel{
	{"menu", []string{"menu"}},
	{"reviews", []string{"review", "rating"}},
	{"booking", []string{"reservation", "booking", "book a table"}},
	{"instagram", []string{"instagram"}},
	{"facebook", []string{"facebook"}},
	{"maps", []string{"google maps", "maps", "directions"}},
	{"website", []string{"website", "homepage", "home page", "official site"}},
}

// ExtractURLs maps a semantic label to the first URL found for it anywhere
// in text. URLs that cannot be labelled are ignored.
func ExtractURLs(text string) map[string]string {
	urls := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		prev := 0
		for _, loc := range urlPattern.FindAllStringIndex(line, -1) {
			context := strings.ToLower(line[prev:loc[0]])
			prev = loc[1]

			link := strings.TrimRight(line[loc[0]:loc[1]], ".,;:!?*")
			label := labelFromContext(context)
			if label == "" {
				label = labelFromHost(link)
			}
			if label == "" {
				continue
			}
			if _, taken := urls[label]; !taken {
				urls[label] = link
			}
		}
	}
	return urls
}

func labelFromContext(context string) string {
	for _, l := range labelKeywords {
		for _, kw := range l.keywords {
			if strings.Contains(context, kw) {
				return l.label
			}
		}
	}
	return ""
}

func labelFromHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.ToLower(u.Path)
	switch {
	case host == "instagram.com":
		return "instagram"
	case host == "facebook.com" || host == "m.facebook.com":
		return "facebook"
	case host == "yelp.com" || strings.HasPrefix(host, "tripadvisor."):
		return "reviews"
	case host == "opentable.com" || host == "resy.com":
		return "booking"
	case strings.HasPrefix(host, "maps.google.") || host == "maps.app.goo.gl" ||
		(strings.HasPrefix(host, "google.") && strings.HasPrefix(path, "/maps")):
		return "maps"
	case strings.Contains(path, "menu"):
		return "menu"
	}
	return ""
}
