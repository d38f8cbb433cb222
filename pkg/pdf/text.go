package pdf

import (
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// ExtractText returns the plain text of every page of the PDF at path, indexed from 0.
// Pages whose text cannot be decoded yield an empty string.
func ExtractText(path string) ([]string, error) {
	file, reader, err := ledongthuc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close() //nolint:errcheck

	total := reader.NumPage()
	texts := make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i-1] = strings.TrimSpace(text)
	}
	return texts, nil
}

// ExtractPageText returns the text of a single-page PDF file.
func ExtractPageText(path string) (string, error) {
	texts, err := ExtractText(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}
