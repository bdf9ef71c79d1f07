package pulse

import (
	"strings"

	"golang.org/x/text/cases"
)

// SinkInput identifies one application's live audio stream.
type SinkInput struct {
	ID  string
	App string
}

var fold = cases.Fold()

// parseSinkInputs extracts stream IDs and application names from
// `pactl list sink-inputs` output. Streams without an application.name
// property are skipped; they cannot be matched against app filters.
func parseSinkInputs(output string) []SinkInput {
	var inputs []SinkInput
	for _, block := range strings.Split(output, "Sink Input #")[1:] {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 {
			continue
		}
		id := strings.TrimSpace(lines[0])
		if id == "" {
			continue
		}

		var app string
		for _, line := range lines {
			if idx := strings.Index(line, `application.name = "`); idx >= 0 {
				rest := line[idx+len(`application.name = "`):]
				if end := strings.Index(rest, `"`); end >= 0 {
					app = rest[:end]
				}
				break
			}
		}
		if app == "" {
			continue
		}
		inputs = append(inputs, SinkInput{ID: id, App: app})
	}
	return inputs
}

// realSinkFromList returns the name of the first sink in `pactl list short
// sinks` output that is not the virtual capture sink.
func realSinkFromList(output, exclude string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, exclude) {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		return fields[1], true
	}
	return "", false
}

// Matches reports whether an application name matches any of the
// configured filters.
func Matches(app string, filters []string) bool {
	return matchesAny(app, filters)
}

// matchesAny reports whether app contains any filter, compared case-folded.
func matchesAny(app string, filters []string) bool {
	folded := fold.String(app)
	for _, filter := range filters {
		if filter == "" {
			continue
		}
		if strings.Contains(folded, fold.String(filter)) {
			return true
		}
	}
	return false
}
