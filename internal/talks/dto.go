package talks

import "time"

// talkResponse is the wire shape for a talk.
type talkResponse struct {
	ID                       string   `json:"id"`
	Title                    string   `json:"title"`
	Speaker                  string   `json:"speaker,omitempty"`
	EventName                string   `json:"eventName,omitempty"`
	Seniority                string   `json:"seniority"`
	Verbosity                string   `json:"verbosity"`
	ClassificationOrigin     string   `json:"classificationOrigin"`
	ClassificationConfidence *float64 `json:"classificationConfidence,omitempty"`
	Status                   string   `json:"status"`
	ErrorDetail              *string  `json:"errorDetail,omitempty"`
	CreatedAt                string   `json:"createdAt"`
	UpdatedAt                string   `json:"updatedAt"`
}

func toResponse(t Talk) talkResponse {
	return talkResponse{
		ID:                       t.ID,
		Title:                    t.Title,
		Speaker:                  t.Speaker,
		EventName:                t.EventName,
		Seniority:                string(t.Seniority),
		Verbosity:                string(t.Verbosity),
		ClassificationOrigin:     string(t.ClassificationOrigin),
		ClassificationConfidence: t.ClassificationConfidence,
		Status:                   string(t.Status),
		ErrorDetail:              t.ErrorDetail,
		CreatedAt:                t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
