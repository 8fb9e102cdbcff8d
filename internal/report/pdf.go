// Package report renders a summary.Summary as a paginated PDF and as
// markdown/HTML for the web dashboard.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/summary"
)

// DefaultTitle is printed in the header of every page.
const DefaultTitle = "INFORME POSTVENTA"

// TimestampLayout formats the generation time.
const TimestampLayout = "2006-01-02 15:04"

const (
	fontFamily    = "Helvetica"
	pageMarginMM  = 15.0
	lineHeightMM  = 7.0
	headingHeight = 10.0
)

// Options configures a Renderer.
type Options struct {
	Title string
}

// Renderer produces report documents.
type Renderer struct {
	title string
}

// NewRenderer creates a Renderer. An empty title uses DefaultTitle.
func NewRenderer(opts Options) *Renderer {
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	return &Renderer{title: title}
}

// Title returns the report title.
func (r *Renderer) Title() string {
	return r.title
}

// section is one labeled list of the general summary.
type section struct {
	label  string
	counts []store.Count
}

func sections(s *summary.Summary) []section {
	return []section{
		{"Total por estado", s.ByStatus},
		{fmt.Sprintf("Top %d casas con más reportes", s.TopUnitsN), s.TopUnits},
		{fmt.Sprintf("Top %d capítulos más frecuentes", s.TopChaptersN), s.TopChapters},
		{"Conteo por área", s.ByArea},
	}
}

// PDF writes the report to w.
func (r *Renderer) PDF(w io.Writer, s *summary.Summary) error {
	doc := r.document(s)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// WritePDF writes the report to path, creating its directory.
func (r *Renderer) WritePDF(path string, s *summary.Summary) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return r.PDF(f, s)
}

// document lays out the A4 report. Text is translated to cp1252 for the
// core fonts.
func (r *Renderer) document(s *summary.Summary) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(r.title, true)
	pdf.SetCreationDate(s.GeneratedAt)
	pdf.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	pdf.SetAutoPageBreak(true, pageMarginMM)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 14)
		pdf.CellFormat(0, headingHeight, tr(r.title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMarginMM)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, headingHeight, tr(fmt.Sprintf("Página %d", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(fontFamily, "", 12)
	pdf.CellFormat(0, headingHeight, tr("Fecha de generación: "+s.GeneratedAt.Format(TimestampLayout)), "", 1, "L", false, 0, "")
	pdf.Ln(5)
	pdf.CellFormat(0, headingHeight, tr(fmt.Sprintf("Total de registros procesados: %d", s.Total)), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(0, headingHeight, "RESUMEN GENERAL", "", 1, "L", false, 0, "")
	pdf.Ln(5)

	for _, sec := range sections(s) {
		pdf.SetFont(fontFamily, "B", 11)
		pdf.CellFormat(0, 8, tr(sec.label+":"), "", 1, "L", false, 0, "")

		pdf.SetFont(fontFamily, "", 11)
		if len(sec.counts) == 0 {
			pdf.CellFormat(0, lineHeightMM, tr("- Sin registros"), "", 1, "L", false, 0, "")
		}
		for _, c := range sec.counts {
			pdf.MultiCell(0, lineHeightMM, tr(fmt.Sprintf("- %s: %d", c.Key, c.Count)), "", "L", false)
		}
		pdf.Ln(5)
	}

	return pdf
}
