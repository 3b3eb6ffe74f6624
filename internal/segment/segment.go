// Package segment splits free-text worker output into labeled sections and
// extracts numeric metrics. It is a best-effort fallback for workers that do
// not return structured output; the coordinator core never depends on a
// section being present.
package segment

import (
	"strconv"
	"strings"
)

// markerPriority is the fixed, ordered list of section markers recognized in
// worker output. Earlier markers win when extracting the primary section.
var markerPriority = []string{
	"KEY FINDINGS:",
	"SUMMARY:",
	"ANALYSIS:",
	"RECOMMENDATIONS:",
	"CONCLUSION:",
}

// placeholder is returned for sections that are absent from the text.
const placeholder = "not provided"

// Sections maps marker labels (without the trailing colon) to their content.
type Sections map[string]string

// Split extracts all recognized sections from the text. A section runs from
// its marker to the next recognized marker or end of text. Markers are
// matched case-insensitively at line starts. Absent sections map to the
// placeholder value.
func Split(text string) Sections {
	sections := make(Sections, len(markerPriority))
	for _, m := range markerPriority {
		sections[labelOf(m)] = placeholder
	}

	lines := strings.Split(text, "\n")
	current := ""
	var buf []string

	flush := func() {
		if current == "" {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content != "" {
			sections[current] = content
		}
		buf = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := matchMarker(trimmed); m != "" {
			flush()
			current = labelOf(m)
			rest := strings.TrimSpace(trimmed[len(m):])
			if rest != "" {
				buf = append(buf, rest)
			}
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return sections
}

// Primary returns the content of the highest-priority section present in the
// text, or the placeholder when none is found.
func Primary(text string) string {
	sections := Split(text)
	for _, m := range markerPriority {
		if s := sections[labelOf(m)]; s != placeholder {
			return s
		}
	}
	return placeholder
}

// Metrics extracts "name: value" numeric metric lines from the text. Names
// are lowercased; values must parse as floats. Non-metric lines are ignored.
func Metrics(text string) map[string]float64 {
	metrics := make(map[string]float64)
	for _, line := range strings.Split(text, "\n") {
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			continue
		}
		metrics[name] = value
	}
	return metrics
}

// matchMarker returns the recognized marker at the start of the trimmed
// line, or "" when the line starts no section.
func matchMarker(trimmed string) string {
	upper := strings.ToUpper(trimmed)
	for _, m := range markerPriority {
		if strings.HasPrefix(upper, m) {
			return m
		}
	}
	return ""
}

// labelOf converts a marker to its map key ("KEY FINDINGS:" -> "key findings").
func labelOf(marker string) string {
	return strings.ToLower(strings.TrimSuffix(marker, ":"))
}
