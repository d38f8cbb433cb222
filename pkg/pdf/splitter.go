package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// SplitPage is one extracted single-page file.
type SplitPage struct {
	PageNumber int
	Path       string
}

// Splitter writes every page of a PDF into its own file.
type Splitter struct {
	conf *model.Configuration
}

// NewSplitter returns a splitter using pdfcpu's default configuration.
func NewSplitter() *Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Splitter{conf: conf}
}

// Split extracts every page of sourcePath into outputDir/page_{n}.pdf, numbered from 1.
// Corrupt input fails the whole split and leaves already written pages in outputDir.
func (s *Splitter) Split(sourcePath, outputDir string) ([]SplitPage, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer src.Close() //nolint:errcheck

	pdfCtx, err := api.ReadValidateAndOptimize(src, s.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if pdfCtx.PageCount == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare page directory: %w", err)
	}

	pages := make([]SplitPage, 0, pdfCtx.PageCount)
	for pageNum := 1; pageNum <= pdfCtx.PageCount; pageNum++ {
		pageReader, err := api.ExtractPage(pdfCtx, pageNum)
		if err != nil {
			return pages, fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		target := filepath.Join(outputDir, PageFileName(pageNum))
		if err := writeFile(target, pageReader); err != nil {
			return pages, fmt.Errorf("write page %d: %w", pageNum, err)
		}
		pages = append(pages, SplitPage{PageNumber: pageNum, Path: target})
	}
	return pages, nil
}

// PageFileName is the file name used for page n of a split document.
func PageFileName(n int) string {
	return fmt.Sprintf("page_%d.pdf", n)
}

func writeFile(path string, r io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close() //nolint:errcheck
		return err
	}
	return file.Close()
}
