package render

import (
	"strings"
	"testing"
)

func TestFormatPlainText(t *testing.T) {
	doc := Document{
		Title:   "Scaling Search",
		Speaker: "Ada Example",
		Event:   "GopherCon",
		Body: strings.Join([]string{
			"## Summary",
			"a **key** point",
			"- bullet one",
			"> worth quoting",
			"---",
		}, "\n"),
	}

	out := FormatPlainText(doc)

	for _, want := range []string{
		"Scaling Search\n",
		"Ada Example - GopherCon\n",
		"Summary\n=======\n",
		"a key point\n",
		"  * bullet one\n",
		"    | worth quoting\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "**") {
		t.Errorf("bold markers should be stripped")
	}
	if strings.Contains(out, "## ") {
		t.Errorf("heading markers should be stripped")
	}
}

func TestFormatPlainTextUntitled(t *testing.T) {
	out := FormatPlainText(Document{Body: "text"})
	if !strings.HasPrefix(out, "Untitled talk\n") {
		t.Fatalf("got %q", out)
	}
}
