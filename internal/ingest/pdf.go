// internal/ingest/pdf.go
package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText returns the plain text of every page, each preceded by a
// "--- Page n ---" marker.
func ExtractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	extracted := false
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		if strings.TrimSpace(text) != "" {
			extracted = true
		}
		fmt.Fprintf(&b, "\n\n--- Page %d ---\n\n%s", i, text)
	}
	if !extracted {
		return "", fmt.Errorf("pdf %s has no extractable text", path)
	}
	return b.String(), nil
}
