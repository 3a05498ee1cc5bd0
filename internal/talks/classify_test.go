package talks

import (
	"testing"

	"livebook-backend/internal/llm"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		title     string
		event     string
		seniority llm.Seniority
	}{
		{"intro talk", "Intro to Kubernetes", "CloudConf", llm.SeniorityJunior},
		{"beginner keyword", "Go 101: first steps", "", llm.SeniorityJunior},
		{"architecture talk", "Event-driven architecture at scale", "QCon", llm.SenioritySenior},
		{"postmortem", "A postmortem of our outage", "", llm.SenioritySenior},
		{"neutral title", "Shipping features faster", "", llm.SeniorityMid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.title, tc.event)
			if got.Seniority != tc.seniority {
				t.Errorf("seniority = %q, want %q", got.Seniority, tc.seniority)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Errorf("confidence = %v, want in (0, 1]", got.Confidence)
			}
		})
	}
}

func TestClassifyConfidenceCapped(t *testing.T) {
	got := Classify("Intro 101 fundamentals basics for beginners getting started from scratch", "")
	if got.Confidence > 0.9 {
		t.Errorf("confidence = %v, want capped at 0.9", got.Confidence)
	}
}
