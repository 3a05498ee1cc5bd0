package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "Helvetica"
	// vertical space reserved on page one for the cover header
	coverHeaderH = 26.0
)

// Document is the renderer input. Body is the generated livebook source
// text; it must already have passed through Sanitize.
type Document struct {
	Title   string
	Speaker string
	Event   string
	Body    string
}

// Renderer turns a livebook document into paginated PDF bytes.
type Renderer struct {
	// Attribution appears in the running footer of every page.
	Attribution string
}

// NewRenderer constructs a Renderer with the given footer attribution.
func NewRenderer(attribution string) *Renderer {
	if strings.TrimSpace(attribution) == "" {
		attribution = "livebook"
	}
	return &Renderer{Attribution: attribution}
}

// Render lays out and draws the document, returning the PDF bytes.
// Layout bugs must not take the pipeline down, so panics are converted
// into an error for the caller to record as a stage failure.
func (r *Renderer) Render(doc Document) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("render panic: %v", rec)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	metrics := &pdfMetrics{pdf: pdf}
	engine := NewEngine(metrics)
	geo := engine.Geo

	pages := engine.Layout(doc.Body, coverHeaderH)
	Paginate(pages, geo, r.Attribution, metrics)

	for i, page := range pages {
		pdf.AddPage()
		if i == 0 {
			r.drawCoverHeader(pdf, tr, geo, doc)
		}
		for _, instr := range page.Instrs {
			switch instr.Kind {
			case InstrText:
				setFont(pdf, instr.Font)
				pdf.Text(instr.X, instr.Y, tr(instr.Text))
			case InstrRule:
				pdf.SetDrawColor(180, 180, 180)
				pdf.SetLineWidth(0.3)
				pdf.Line(instr.X, instr.Y, instr.X2, instr.Y2)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawCoverHeader(pdf *fpdf.Fpdf, tr func(string) string, geo Geometry, doc Document) {
	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled talk"
	}

	pdf.SetFont(fontFamily, "B", 20)
	pdf.SetTextColor(31, 63, 112)
	pdf.Text(geo.MarginLeft, geo.MarginTop+8, tr(title))

	meta := doc.Speaker
	if doc.Event != "" {
		if meta != "" {
			meta += " - " + doc.Event
		} else {
			meta = doc.Event
		}
	}
	if meta != "" {
		pdf.SetFont(fontFamily, "I", 11)
		pdf.SetTextColor(96, 96, 96)
		pdf.Text(geo.MarginLeft, geo.MarginTop+16, tr(meta))
	}

	pdf.SetDrawColor(31, 63, 112)
	pdf.SetLineWidth(0.6)
	pdf.Line(geo.MarginLeft, geo.MarginTop+20, geo.PageWidth-geo.MarginRight, geo.MarginTop+20)
}

func setFont(pdf *fpdf.Fpdf, font Font) {
	style := ""
	if font.Bold {
		style += "B"
	}
	if font.Italic {
		style += "I"
	}
	pdf.SetFont(fontFamily, style, font.Size)
	pdf.SetTextColor(font.R, font.G, font.B)
}

// pdfMetrics measures text with the live fpdf font state.
type pdfMetrics struct {
	pdf *fpdf.Fpdf
}

func (m *pdfMetrics) TextWidth(text string, font Font) float64 {
	style := ""
	if font.Bold {
		style += "B"
	}
	if font.Italic {
		style += "I"
	}
	m.pdf.SetFont(fontFamily, style, font.Size)
	return m.pdf.GetStringWidth(text)
}

var _ Metrics = (*pdfMetrics)(nil)
