package render

import "strings"

// placeholder replaces any non-ASCII code point without a table entry.
const placeholder = '?'

// symbolTable maps symbols outside the core font encoding to ASCII-safe
// equivalents. Every replacement is itself printable ASCII, which is what
// makes Sanitize idempotent.
var symbolTable = map[rune]string{
	// typographic punctuation
	'‘': "'", '’': "'", '‚': "'", '‛': "'",
	'“': `"`, '”': `"`, '„': `"`,
	'–': "-", '—': "-", '―': "-",
	'…': "...",
	'•': "*", '·': "*",
	' ': " ",
	'¡': "!", '¿': "?",

	// arrows
	'←': "<-", '→': "->", '↑': "^", '↓': "v",
	'⇐': "<=", '⇒': "=>", '↔': "<->",

	// mathematical operators
	'×': "x", '÷': "/", '±': "+/-",
	'≤': "<=", '≥': ">=", '≠': "!=", '≈': "~",
	'∞': "infinity", '√': "sqrt", '∑': "sum", '∏': "product",
	'°': " deg", '²': "^2", '³': "^3", '½': "1/2",
	'¼': "1/4", '¾': "3/4",

	// greek letters
	'α': "alpha", 'β': "beta", 'γ': "gamma", 'δ': "delta",
	'ε': "epsilon", 'θ': "theta", 'λ': "lambda", 'μ': "mu",
	'π': "pi", 'σ': "sigma", 'τ': "tau", 'φ': "phi",
	'ω': "omega",
	'Δ': "Delta", 'Σ': "Sigma", 'Ω': "Omega", 'Π': "Pi",

	// currency
	'€': "EUR", '£': "GBP", '¥': "JPY", '₹': "INR",
	'¢': "c",

	// legal marks
	'©': "(c)", '®': "(R)", '™': "(TM)",
}

// Sanitize normalizes text to the printable ASCII range so it can be drawn
// with the core PDF fonts. Known symbols are replaced with readable
// equivalents; anything else outside the range becomes the placeholder.
// Newlines and tabs are preserved; carriage returns are dropped.
//
// Sanitize is pure, total, and idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\r':
			// dropped; \r\n collapses to \n
		case r >= 0x20 && r <= 0x7E:
			b.WriteRune(r)
		default:
			if rep, ok := symbolTable[r]; ok {
				b.WriteString(rep)
			} else {
				b.WriteRune(placeholder)
			}
		}
	}
	return b.String()
}
