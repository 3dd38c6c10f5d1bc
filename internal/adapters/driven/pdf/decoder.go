package pdf

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// Ensure Decoder implements the interface.
var _ driven.PDFDecoder = (*Decoder)(nil)

// Decoder opens PDF files from disk.
type Decoder struct{}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open parses the document structure. Page content is decoded on demand.
func (d *Decoder) Open(path string) (doc driven.PDFDocument, err error) {
	var f *os.File
	defer func() {
		if err != nil && f != nil {
			f.Close()
		}
	}()
	defer recoverAs(&err, "opening "+path)

	f, r, err := ledongthuc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	n := r.NumPage()
	if n <= 0 {
		return nil, fmt.Errorf("opening %s: document has no pages", path)
	}
	return &document{path: path, file: f, reader: r, pages: n}, nil
}

type document struct {
	path   string
	file   *os.File
	reader *ledongthuc.Reader
	pages  int

	imagesOnce sync.Once
	imagesCtx  *model.Context
	imagesErr  error
}

func (d *document) PageCount() int {
	return d.pages
}

// PageText returns the text of a 1-based page.
func (d *document) PageText(page int) (text string, err error) {
	if page < 1 || page > d.pages {
		return "", fmt.Errorf("%w: page %d of %d", domain.ErrInvalidInput, page, d.pages)
	}
	defer recoverAs(&err, fmt.Sprintf("page %d text", page))

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d not found", page)
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d text: %w", page, err)
	}
	return strings.TrimSpace(text), nil
}

// PageImages returns the images embedded on a 1-based page in a stable order.
func (d *document) PageImages(page int) (images []domain.PageImage, err error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("%w: page %d of %d", domain.ErrInvalidInput, page, d.pages)
	}
	d.imagesOnce.Do(d.loadImageContext)
	if d.imagesErr != nil {
		return nil, d.imagesErr
	}
	defer recoverAs(&err, fmt.Sprintf("page %d images", page))

	found, err := pdfcpu.ExtractPageImages(d.imagesCtx, page, false)
	if err != nil {
		return nil, fmt.Errorf("page %d images: %w", page, err)
	}

	images = make([]domain.PageImage, 0, len(found))
	for _, objNr := range slices.Sorted(maps.Keys(found)) {
		img := found[objNr]
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img.Reader)
		if err != nil {
			logger.Warn("pdf: reading image %s on page %d: %v", img.Name, page, err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		images = append(images, domain.PageImage{
			Index: len(images) + 1,
			Data:  data,
			Ext:   img.FileType,
		})
	}
	return images, nil
}

// loadImageContext reads the whole file into a pdfcpu context.
func (d *document) loadImageContext() {
	defer recoverAs(&d.imagesErr, "loading image context")

	f, err := os.Open(d.path)
	if err != nil {
		d.imagesErr = fmt.Errorf("opening %s: %w", d.path, err)
		return
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		d.imagesErr = fmt.Errorf("reading %s for images: %w", d.path, err)
		return
	}
	d.imagesCtx = ctx
}

func (d *document) Close() error {
	d.imagesCtx = nil
	return d.file.Close()
}

// recoverAs turns a panic inside a PDF library into an error.
func recoverAs(err *error, what string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: malformed pdf: %v", what, r)
	}
}
