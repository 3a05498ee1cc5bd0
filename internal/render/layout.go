package render

import (
	"fmt"
	"strings"
)

// Metrics measures rendered text width for a given font. The PDF executor
// provides real font metrics; tests can supply a fixed-width fake.
type Metrics interface {
	TextWidth(text string, font Font) float64
}

// Font describes how a run of text is drawn.
type Font struct {
	Size   float64
	Bold   bool
	Italic bool
	R      int
	G      int
	B      int
}

// InstrKind discriminates draw instructions.
type InstrKind int

const (
	// InstrText draws Text with Font at baseline (X, Y).
	InstrText InstrKind = iota
	// InstrRule draws a line from (X, Y) to (X2, Y2).
	InstrRule
)

// Instr is a single draw instruction on a page.
type Instr struct {
	Kind InstrKind
	Text string
	Font Font
	X    float64
	Y    float64
	X2   float64
	Y2   float64
}

// Page is an ordered list of draw instructions.
type Page struct {
	Instrs []Instr
}

// Geometry fixes the page box in millimeters (A4 portrait).
type Geometry struct {
	PageWidth   float64
	PageHeight  float64
	MarginLeft  float64
	MarginRight float64
	MarginTop   float64
	// BottomLimit is the lowest allowed text baseline; the cursor falling
	// past it forces a page break before the next draw.
	BottomLimit float64
	// FooterY is the baseline reserved for the running footer.
	FooterY float64
}

// DefaultGeometry returns the A4 geometry used for livebook documents.
func DefaultGeometry() Geometry {
	return Geometry{
		PageWidth:   210,
		PageHeight:  297,
		MarginLeft:  15,
		MarginRight: 15,
		MarginTop:   20,
		BottomLimit: 272,
		FooterY:     285,
	}
}

func (g Geometry) contentWidth() float64 {
	return g.PageWidth - g.MarginLeft - g.MarginRight
}

var (
	fontHeading    = Font{Size: 16, Bold: true, R: 31, G: 63, B: 112}
	fontSubheading = Font{Size: 13, Bold: true, R: 31, G: 63, B: 112}
	fontBody       = Font{Size: 11}
	fontBold       = Font{Size: 11, Bold: true}
	fontQuote      = Font{Size: 11, Italic: true, R: 96, G: 96, B: 96}
	fontFooter     = Font{Size: 8, R: 128, G: 128, B: 128}
)

const (
	lineHeadingH    = 9.0
	lineSubheadingH = 7.5
	lineBodyH       = 6.0
	spacerH         = 3.5
	headingGapH     = 3.0
	bulletIndent    = 6.0
	quoteIndent     = 6.0
)

// Engine lays out lightly-marked-up text into paginated draw instructions.
type Engine struct {
	Metrics Metrics
	Geo     Geometry
}

// NewEngine constructs a layout engine with the default geometry.
func NewEngine(m Metrics) *Engine {
	return &Engine{Metrics: m, Geo: DefaultGeometry()}
}

type layoutState struct {
	pages []Page
	cur   Page
	y     float64
}

// Layout parses the document body line by line and produces the page
// sequence. firstPageOffset reserves vertical space on page one for the
// cover header drawn by the caller.
func (e *Engine) Layout(body string, firstPageOffset float64) []Page {
	st := &layoutState{y: e.Geo.MarginTop + firstPageOffset}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, " \t")
		switch {
		case strings.TrimSpace(line) == "":
			e.spacer(st, spacerH)
		case line == "---":
			e.rule(st)
		case strings.HasPrefix(line, "## "):
			e.spacer(st, headingGapH)
			e.text(st, strings.TrimPrefix(line, "## "), fontHeading, lineHeadingH, 0)
		case strings.HasPrefix(line, "### "):
			e.spacer(st, headingGapH)
			e.text(st, strings.TrimPrefix(line, "### "), fontSubheading, lineSubheadingH, 0)
		case strings.HasPrefix(line, "> "):
			e.quote(st, strings.TrimPrefix(line, "> "))
		case strings.HasPrefix(line, "- "):
			e.bullet(st, strings.TrimPrefix(line, "- "))
		case strings.Contains(line, "**"):
			e.text(st, strings.ReplaceAll(line, "**", ""), fontBold, lineBodyH, 0)
		default:
			e.text(st, line, fontBody, lineBodyH, 0)
		}
	}

	st.pages = append(st.pages, st.cur)
	return st.pages
}

// ensure breaks to a new page when the cursor has fallen past the bottom
// margin. It runs before every drawn line, spacer, and rule so nothing can
// overflow the page box.
func (e *Engine) ensure(st *layoutState, needed float64) {
	if st.y+needed <= e.Geo.BottomLimit {
		return
	}
	st.pages = append(st.pages, st.cur)
	st.cur = Page{}
	st.y = e.Geo.MarginTop
}

func (e *Engine) spacer(st *layoutState, h float64) {
	if st.y <= e.Geo.MarginTop {
		// nothing to separate at the top of a page
		return
	}
	e.ensure(st, h)
	st.y += h
}

func (e *Engine) rule(st *layoutState) {
	e.ensure(st, spacerH*2)
	y := st.y + spacerH/2
	st.cur.Instrs = append(st.cur.Instrs, Instr{
		Kind: InstrRule,
		X:    e.Geo.MarginLeft,
		Y:    y,
		X2:   e.Geo.PageWidth - e.Geo.MarginRight,
		Y2:   y,
	})
	st.y += spacerH * 2
}

func (e *Engine) text(st *layoutState, text string, font Font, lineH, indent float64) {
	width := e.Geo.contentWidth() - indent
	for _, wrapped := range e.wrap(text, font, width) {
		e.ensure(st, lineH)
		st.y += lineH
		st.cur.Instrs = append(st.cur.Instrs, Instr{
			Kind: InstrText,
			Text: wrapped,
			Font: font,
			X:    e.Geo.MarginLeft + indent,
			Y:    st.y,
		})
	}
}

func (e *Engine) bullet(st *layoutState, text string) {
	width := e.Geo.contentWidth() - bulletIndent
	for i, wrapped := range e.wrap(text, fontBody, width) {
		e.ensure(st, lineBodyH)
		st.y += lineBodyH
		if i == 0 {
			st.cur.Instrs = append(st.cur.Instrs, Instr{
				Kind: InstrText,
				Text: "•",
				Font: fontBody,
				X:    e.Geo.MarginLeft + 1.5,
				Y:    st.y,
			})
		}
		st.cur.Instrs = append(st.cur.Instrs, Instr{
			Kind: InstrText,
			Text: wrapped,
			Font: fontBody,
			X:    e.Geo.MarginLeft + bulletIndent,
			Y:    st.y,
		})
	}
}

func (e *Engine) quote(st *layoutState, text string) {
	width := e.Geo.contentWidth() - quoteIndent
	for _, wrapped := range e.wrap(text, fontQuote, width) {
		e.ensure(st, lineBodyH)
		st.y += lineBodyH
		st.cur.Instrs = append(st.cur.Instrs,
			Instr{
				Kind: InstrRule,
				X:    e.Geo.MarginLeft + 1,
				Y:    st.y - lineBodyH + 1.5,
				X2:   e.Geo.MarginLeft + 1,
				Y2:   st.y + 1.5,
			},
			Instr{
				Kind: InstrText,
				Text: wrapped,
				Font: fontQuote,
				X:    e.Geo.MarginLeft + quoteIndent,
				Y:    st.y,
			},
		)
	}
}

// wrap greedily packs words onto lines within maxWidth. A word wider than
// the whole line is placed alone and allowed to overflow horizontally.
func (e *Engine) wrap(text string, font Font, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if e.Metrics.TextWidth(candidate, font) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// Paginate stamps the running footer onto every page of a completed layout.
// It is a second pass by necessity: the total is unknown until layout ends.
func Paginate(pages []Page, geo Geometry, attribution string, m Metrics) {
	total := len(pages)
	for i := range pages {
		label := fmt.Sprintf("%s  |  page %d of %d", attribution, i+1, total)
		width := m.TextWidth(label, fontFooter)
		pages[i].Instrs = append(pages[i].Instrs, Instr{
			Kind: InstrText,
			Text: label,
			Font: fontFooter,
			X:    (geo.PageWidth - width) / 2,
			Y:    geo.FooterY,
		})
	}
}
