package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// ════════════════════════════════════════════════════════════════════
// PDF Canvas (go-pdf/fpdf)
// ════════════════════════════════════════════════════════════════════

// PDFConfig holds document metadata.
type PDFConfig struct {
	Title   string
	Author  string
	Creator string
	// Created stamps the document. A fixed value makes output reproducible.
	Created time.Time
}

// pdfCanvas draws onto an fpdf document in point units.
type pdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// newPDFCanvas creates an empty US Letter document.
func newPDFCanvas(cfg PDFConfig) *pdfCanvas {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCatalogSort(true)
	if !cfg.Created.IsZero() {
		pdf.SetCreationDate(cfg.Created)
		pdf.SetModificationDate(cfg.Created)
	}
	if cfg.Title != "" {
		pdf.SetTitle(cfg.Title, true)
	}
	if cfg.Author != "" {
		pdf.SetAuthor(cfg.Author, true)
	}
	if cfg.Creator != "" {
		pdf.SetCreator(cfg.Creator, true)
	}
	return &pdfCanvas{
		pdf: pdf,
		// Core fonts are cp1252; translate so accented names render.
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *pdfCanvas) AddPage() { c.pdf.AddPage() }

func (c *pdfCanvas) SetFont(f Font) { c.pdf.SetFont(f.Family, f.Style, f.Size) }

func (c *pdfCanvas) Text(x, y float64, s string) { c.pdf.Text(x, y, c.tr(s)) }

func (c *pdfCanvas) TextWidth(s string) float64 { return c.pdf.GetStringWidth(c.tr(s)) }

func (c *pdfCanvas) Line(x1, y1, x2, y2 float64) { c.pdf.Line(x1, y1, x2, y2) }

func (c *pdfCanvas) DrawImage(img Image, x, y, w, h float64) (err error) {
	if err := c.pdf.Error(); err != nil {
		return err
	}
	// fpdf's image parsers panic on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			c.pdf.ClearError()
			err = fmt.Errorf("embed image %s: %v", img.Name, r)
		}
	}()

	opts := fpdf.ImageOptions{ImageType: img.Type}
	c.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
	if err := c.pdf.Error(); err != nil {
		// fpdf latches errors; clear it so the document can continue
		// without the image.
		c.pdf.ClearError()
		return fmt.Errorf("embed image %s: %w", img.Name, err)
	}
	c.pdf.ImageOptions(img.Name, x, y, w, h, false, opts, 0, "")
	return nil
}

func (c *pdfCanvas) Err() error { return c.pdf.Error() }

// PageCount returns the number of pages added so far.
func (c *pdfCanvas) PageCount() int { return c.pdf.PageCount() }

// WriteTo serialises the finished document.
func (c *pdfCanvas) WriteTo(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
