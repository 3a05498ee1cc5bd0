package livebooks

import "time"

// livebookResponse is the wire shape for a livebook.
type livebookResponse struct {
	ID              string   `json:"id"`
	TalkID          string   `json:"talkId"`
	ProfileKey      string   `json:"profileKey"`
	Status          string   `json:"status"`
	PDFURL          *string  `json:"pdfUrl,omitempty"`
	TextURL         *string  `json:"textUrl,omitempty"`
	ViewURL         *string  `json:"viewUrl,omitempty"`
	ErrorDetail     *string  `json:"errorDetail,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

func toResponse(lb Livebook) livebookResponse {
	return livebookResponse{
		ID:              lb.ID,
		TalkID:          lb.TalkID,
		ProfileKey:      lb.ProfileKey,
		Status:          string(lb.Status),
		PDFURL:          lb.PDFURL,
		TextURL:         lb.TextURL,
		ViewURL:         lb.ViewURL,
		ErrorDetail:     lb.ErrorDetail,
		DurationSeconds: lb.DurationSeconds,
		CreatedAt:       lb.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       lb.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// statusTalk and statusDocument make up the polling response consumed by
// the transcription dispatcher and the UI.
type statusTalk struct {
	Status     string  `json:"status"`
	Transcript *string `json:"transcript,omitempty"`
}

type statusDocument struct {
	Status      string  `json:"status"`
	ErrorDetail *string `json:"errorDetail,omitempty"`
	PDFURL      *string `json:"pdfUrl,omitempty"`
	TextURL     *string `json:"textUrl,omitempty"`
}

type statusResponse struct {
	Success  bool            `json:"success"`
	Talk     statusTalk      `json:"talk"`
	Document *statusDocument `json:"document,omitempty"`
}
