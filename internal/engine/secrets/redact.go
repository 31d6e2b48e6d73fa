package secrets

import (
	"sort"
	"strings"
)

// Placeholder is the text substituted for a secret of the given kind.
func Placeholder(kind string) string {
	return "<redacted:" + kind + ">"
}

// Redact replaces every detected secret value in text with its placeholder.
// The findings are returned so callers can count or log them; their Value
// fields hold the original text and must not be emitted.
func (d *Detector) Redact(text string) (string, []Finding) {
	findings := d.Detect(text)
	if len(findings) == 0 {
		return text, nil
	}

	kinds := make(map[string]string, len(findings))
	for _, f := range findings {
		if _, ok := kinds[f.Value]; !ok {
			kinds[f.Value] = f.Kind
		}
	}
	values := make([]string, 0, len(kinds))
	for v := range kinds {
		values = append(values, v)
	}
	// Longer values first so a secret containing another is replaced whole.
	sort.Slice(values, func(i, j int) bool {
		if len(values[i]) != len(values[j]) {
			return len(values[i]) > len(values[j])
		}
		return values[i] < values[j]
	})
	for _, v := range values {
		text = strings.ReplaceAll(text, v, Placeholder(kinds[v]))
	}
	return text, findings
}

// MaskValue shortens a secret for log output.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}
