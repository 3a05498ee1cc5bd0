package talks

import (
	"strings"

	"livebook-backend/internal/llm"
)

// Classification is an automatically inferred profile with a confidence
// score in [0, 1].
type Classification struct {
	Seniority  llm.Seniority
	Verbosity  llm.Verbosity
	Confidence float64
}

var seniorHints = []string{
	"architecture", "strategy", "scaling", "at scale", "leadership",
	"postmortem", "deep dive", "internals", "trade-off", "tradeoffs",
}

var juniorHints = []string{
	"intro", "introduction", "getting started", "beginner", "101",
	"fundamentals", "basics", "first steps", "from scratch",
}

// Classify infers a profile from talk metadata when the caller did not
// choose one. It is a coarse keyword heuristic: confident matches push
// toward junior or senior, everything else lands on the mid tier. The
// verbosity default is compact since that is the cheaper artifact to
// regenerate if the guess is wrong.
func Classify(title, eventName string) Classification {
	haystack := strings.ToLower(title + " " + eventName)

	score := func(hints []string) int {
		n := 0
		for _, h := range hints {
			if strings.Contains(haystack, h) {
				n++
			}
		}
		return n
	}

	junior := score(juniorHints)
	senior := score(seniorHints)

	switch {
	case junior > senior:
		return Classification{Seniority: llm.SeniorityJunior, Verbosity: llm.VerbosityFull, Confidence: confidenceFor(junior)}
	case senior > junior:
		return Classification{Seniority: llm.SenioritySenior, Verbosity: llm.VerbosityCompact, Confidence: confidenceFor(senior)}
	default:
		return Classification{Seniority: llm.SeniorityMid, Verbosity: llm.VerbosityCompact, Confidence: 0.3}
	}
}

func confidenceFor(hits int) float64 {
	c := 0.5 + 0.15*float64(hits)
	if c > 0.9 {
		c = 0.9
	}
	return c
}
