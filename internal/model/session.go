package model

import "time"

// Session holds the UI state of one browser.
type Session struct {
	ID     string                `json:"id"`
	Image  *SelectedImage        `json:"image,omitempty"`
	Result *ClassificationResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`

	// Pending is the request token of the submission in flight, if any.
	Pending      string    `json:"pending,omitempty"`
	PendingSince time.Time `json:"pending_since,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) ClearOutcome() {
	s.Result = nil
	s.Error = ""
}

func (s *Session) ClearPending() {
	s.Pending = ""
	s.PendingSince = time.Time{}
}
