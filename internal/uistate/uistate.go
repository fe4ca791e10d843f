// Package uistate derives the single visible state of the upload page from a
// session, the clock and the client's drag flag.
package uistate

import (
	"time"

	"mangoleaf/internal/model"
)

type Kind string

const (
	Idle          Kind = "idle"
	DragActive    Kind = "drag_active"
	JustUploaded  Kind = "just_uploaded"
	FileSelected  Kind = "file_selected"
	Submitting    Kind = "submitting"
	Error         Kind = "error"
	ShowingResult Kind = "showing_result"
)

// State is one of the mutually exclusive UI states. Message is set for Error
// and Result for ShowingResult.
type State struct {
	Kind    Kind                        `json:"kind"`
	Message string                      `json:"message,omitempty"`
	Result  *model.ClassificationResult `json:"result,omitempty"`
}

// Pulse is a timed boolean: Active reports true for Duration after Start.
type Pulse struct {
	Start    time.Time
	Duration time.Duration
}

func (p Pulse) Active(now time.Time) bool {
	if p.Start.IsZero() || p.Duration <= 0 {
		return false
	}
	return !now.Before(p.Start) && now.Sub(p.Start) < p.Duration
}

// Remaining is how long the pulse still has to run, zero once it has ended.
func (p Pulse) Remaining(now time.Time) time.Duration {
	if !p.Active(now) {
		return 0
	}
	return p.Duration - now.Sub(p.Start)
}

// Derive picks the state to show. Outcome states win over transient ones so
// that an error or result is never hidden by the upload pulse.
func Derive(session *model.Session, dragging bool, now time.Time, pulse time.Duration) State {
	if dragging {
		return State{Kind: DragActive}
	}
	if session == nil {
		return State{Kind: Idle}
	}
	switch {
	case session.Pending != "" && session.Image != nil:
		return State{Kind: Submitting}
	case session.Error != "":
		return State{Kind: Error, Message: session.Error}
	case session.Result != nil:
		return State{Kind: ShowingResult, Result: session.Result}
	case session.Image == nil:
		return State{Kind: Idle}
	}
	if (Pulse{Start: session.Image.UploadedAt, Duration: pulse}).Active(now) {
		return State{Kind: JustUploaded}
	}
	return State{Kind: FileSelected}
}

// CanSubmit reports whether the trigger control is enabled.
func CanSubmit(session *model.Session) bool {
	return session != nil && session.Image != nil && session.Pending == ""
}
