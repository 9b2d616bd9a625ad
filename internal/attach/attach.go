// Package attach loads the images and documents a prompt refers to.
package attach

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"rsc.io/pdf"

	"github.com/davidhbaek/codegen/internal/wire"
)

type Loader struct {
	MaxImageSize int64
	httpClient   *http.Client
}

func NewLoader() *Loader {
	return &Loader{
		MaxImageSize: MaxImageSize,
		httpClient:   &http.Client{Timeout: 1 * time.Minute},
	}
}

type Document struct {
	Path string
	Text string
}

type Bundle struct {
	Images    []wire.Image
	Documents []Document
}

// Load reads every image and document concurrently. Results keep the order
// of the arguments, and the first failure cancels the rest.
func (l *Loader) Load(ctx context.Context, images, docs []string) (*Bundle, error) {
	bundle := &Bundle{
		Images:    make([]wire.Image, len(images)),
		Documents: make([]Document, len(docs)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range images {
		g.Go(func() error {
			img, err := l.Image(ctx, path)
			if err != nil {
				return fmt.Errorf("loading image %s: %w", path, err)
			}
			bundle.Images[i] = img
			return nil
		})
	}

	for i, path := range docs {
		g.Go(func() error {
			text, err := l.Document(path)
			if err != nil {
				return fmt.Errorf("loading document %s: %w", path, err)
			}
			bundle.Documents[i] = Document{Path: path, Text: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// Document returns the text of a PDF, or the raw contents of any other file.
func (l *Loader) Document(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdfText(path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func pdfText(path string) (text string, err error) {
	// rsc.io/pdf panics on malformed objects
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	file, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= file.NumPage(); i++ {
		page := file.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, t := range page.Content().Text {
			b.WriteString(t.S)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// SystemPrompt wraps every document in <document> tags.
func (b *Bundle) SystemPrompt() string {
	parts := make([]string, 0, len(b.Documents))
	for _, doc := range b.Documents {
		parts = append(parts, wrapInXMLTags(doc.Text, "document"))
	}
	return strings.Join(parts, "\n")
}

func wrapInXMLTags(text, tag string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, text, tag)
}
