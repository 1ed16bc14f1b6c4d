package rag

import (
	"fmt"
	"strings"
)

// FormatContext renders results as labeled blocks, "[Source i - type]:" followed
// by the chunk text, separated by blank lines, in the order given.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		sourceType := string(r.Type)
		if strings.TrimSpace(sourceType) == "" {
			sourceType = "unknown"
		}
		parts = append(parts, fmt.Sprintf("[Source %d - %s]:\n%s", i+1, sourceType, r.Text))
	}
	return strings.Join(parts, "\n\n")
}
