package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Seniority is the target audience experience level for a livebook.
type Seniority string

// Verbosity is the target document length band for a livebook.
type Verbosity string

const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"

	VerbosityCompact Verbosity = "compact"
	VerbosityFull    Verbosity = "full"
)

// ParseSeniority validates raw caller input against the known levels.
func ParseSeniority(s string) (Seniority, error) {
	switch Seniority(strings.ToLower(strings.TrimSpace(s))) {
	case SeniorityJunior:
		return SeniorityJunior, nil
	case SeniorityMid:
		return SeniorityMid, nil
	case SenioritySenior:
		return SenioritySenior, nil
	default:
		return "", fmt.Errorf("unknown seniority %q", s)
	}
}

// ParseVerbosity validates raw caller input against the known bands.
func ParseVerbosity(s string) (Verbosity, error) {
	switch Verbosity(strings.ToLower(strings.TrimSpace(s))) {
	case VerbosityCompact:
		return VerbosityCompact, nil
	case VerbosityFull:
		return VerbosityFull, nil
	default:
		return "", fmt.Errorf("unknown verbosity %q", s)
	}
}

// ProfileKey joins a seniority and verbosity into the canonical storage key,
// e.g. "senior-compact".
func ProfileKey(s Seniority, v Verbosity) string {
	return string(s) + "-" + string(v)
}

// TalkMetadata is the caller-supplied context interpolated into prompts.
type TalkMetadata struct {
	Title   string
	Speaker string
	Event   string
}

// Prompt is the system/user pair submitted to a generation backend.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt assembles the prompt pair for one profile. The output is a
// pure function of its inputs: the templates are fixed at build time via
// embedding, so identical inputs always produce byte-identical prompts.
func BuildPrompt(s Seniority, v Verbosity, meta TalkMetadata, transcript string) (Prompt, error) {
	structure, err := promptFS.ReadFile("prompts/structure.txt")
	if err != nil {
		return Prompt{}, fmt.Errorf("read structure template: %w", err)
	}
	profile, err := promptFS.ReadFile("prompts/" + ProfileKey(s, v) + ".txt")
	if err != nil {
		return Prompt{}, fmt.Errorf("read profile template %s: %w", ProfileKey(s, v), err)
	}

	system := strings.TrimRight(string(structure), "\n") + "\n\n" + strings.TrimRight(string(profile), "\n")

	var user strings.Builder
	fmt.Fprintf(&user, "Talk title: %s\n", meta.Title)
	fmt.Fprintf(&user, "Speaker: %s\n", meta.Speaker)
	fmt.Fprintf(&user, "Event: %s\n\n", meta.Event)
	user.WriteString("Full transcript of the talk follows.\n\n")
	user.WriteString(transcript)

	return Prompt{System: system, User: user.String()}, nil
}
