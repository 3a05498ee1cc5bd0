package render

import "strings"

// FormatPlainText produces the plain-text artifact for a livebook from the
// same marker grammar the Layout Engine consumes. The input is expected to
// be sanitized already.
func FormatPlainText(doc Document) string {
	var b strings.Builder

	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled talk"
	}
	b.WriteString(title)
	b.WriteString("\n")
	if doc.Speaker != "" {
		b.WriteString(doc.Speaker)
		if doc.Event != "" {
			b.WriteString(" - ")
			b.WriteString(doc.Event)
		}
		b.WriteString("\n")
	} else if doc.Event != "" {
		b.WriteString(doc.Event)
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("=", 72))
	b.WriteString("\n\n")

	for _, raw := range strings.Split(doc.Body, "\n") {
		line := strings.TrimRight(raw, " \t")
		switch {
		case line == "---":
			b.WriteString(strings.Repeat("-", 72))
			b.WriteString("\n")
		case strings.HasPrefix(line, "## "):
			text := strings.TrimPrefix(line, "## ")
			b.WriteString(text)
			b.WriteString("\n")
			b.WriteString(strings.Repeat("=", len(text)))
			b.WriteString("\n")
		case strings.HasPrefix(line, "### "):
			text := strings.TrimPrefix(line, "### ")
			b.WriteString(text)
			b.WriteString("\n")
			b.WriteString(strings.Repeat("-", len(text)))
			b.WriteString("\n")
		case strings.HasPrefix(line, "> "):
			b.WriteString("    | ")
			b.WriteString(stripBold(strings.TrimPrefix(line, "> ")))
			b.WriteString("\n")
		case strings.HasPrefix(line, "- "):
			b.WriteString("  * ")
			b.WriteString(stripBold(strings.TrimPrefix(line, "- ")))
			b.WriteString("\n")
		default:
			b.WriteString(stripBold(line))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func stripBold(s string) string {
	return strings.ReplaceAll(s, "**", "")
}
