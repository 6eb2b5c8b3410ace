package aitools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFReaderTool extracts text and metadata from a PDF, optionally restricted
// to a page subset. Malformed PDFs fail with a descriptive error rather than
// returning partial text.
type PDFReaderTool struct {
	runtime *Runtime
}

func NewPDFReaderTool(runtime *Runtime) *PDFReaderTool {
	return &PDFReaderTool{runtime: runtime}
}

func (t *PDFReaderTool) GetInfo() Spec {
	return mustSpec("pdf_reader")
}

type pdfReaderArgs struct {
	FileBlobID string `json:"file_blob_id"`
	Path       string `json:"path"`
	Pages      []int  `json:"pages"`
}

func (t *PDFReaderTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params pdfReaderArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	file, err := t.runtime.MaterializeInput(ctx, params.FileBlobID, params.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	text, pages, metadata, err := ExtractPDFText(ctx, file.Path, params.Pages)
	if err != nil {
		return nil, err
	}

	pageMaps := make([]map[string]any, 0, len(pages))
	for _, page := range pages {
		pageMaps = append(pageMaps, map[string]any{
			"number": page.Number,
			"text":   page.Text,
		})
	}

	return map[string]any{
		"text":     text,
		"pages":    pageMaps,
		"metadata": metadata,
	}, nil
}

// PDFPage is one page's extracted text.
type PDFPage struct {
	Number int
	Text   string
}

// ExtractPDFText parses a PDF and returns the concatenated text, the
// per-page breakdown, and document metadata. An empty page selection means
// all pages. Also used directly by the analysis pipeline's direct-parse
// path.
func ExtractPDFText(ctx context.Context, path string, selectedPages []int) (string, []PDFPage, map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to stat PDF %s: %w", path, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to parse PDF %s: %w", path, err)
	}

	selected := make(map[int]bool, len(selectedPages))
	for _, number := range selectedPages {
		selected[number] = true
	}

	totalPages := reader.NumPage()
	var pages []PDFPage
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return "", nil, nil, ctx.Err()
		default:
		}

		if len(selected) > 0 && !selected[pageNum] {
			continue
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to extract text from page %d of %s: %w", pageNum, path, err)
		}
		pages = append(pages, PDFPage{Number: pageNum, Text: text})
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		texts = append(texts, page.Text)
	}

	metadata := map[string]any{
		"pages":      totalPages,
		"size_bytes": stat.Size(),
	}

	return strings.Join(texts, "\n\n"), pages, metadata, nil
}
