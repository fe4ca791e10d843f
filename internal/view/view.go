// Package view turns session state into the page model and renders it.
package view

import (
	"fmt"
	"time"

	"mangoleaf/internal/model"
	"mangoleaf/internal/uistate"
)

type Page struct {
	Title    string
	Subtitle string

	Kind         uistate.Kind
	JustUploaded bool
	Submitting   bool
	CanSubmit    bool

	HasImage   bool
	PreviewURL string
	Filename   string

	Error  string
	Result *ResultPanel

	// AutoRefresh makes the page reload itself while a submission is
	// outstanding.
	AutoRefresh bool
}

type ResultPanel struct {
	Class      string
	Confidence string
	Healthy    bool
	Advice     Advice
}

// Build is the result renderer: a pure function of the session and the clock.
func Build(session *model.Session, now time.Time, pulse time.Duration, healthyLabel string) Page {
	state := uistate.Derive(session, false, now, pulse)
	page := Page{
		Title:        "Klasifikasi Daun Mangga",
		Subtitle:     "Unggah gambar daun mangga untuk mengidentifikasi jenisnya",
		Kind:         state.Kind,
		JustUploaded: state.Kind == uistate.JustUploaded,
		Submitting:   state.Kind == uistate.Submitting,
		CanSubmit:    uistate.CanSubmit(session),
	}

	if session != nil && session.Image != nil {
		page.HasImage = true
		page.PreviewURL = PreviewURL(session.Image.ID)
		page.Filename = session.Image.Filename
	}

	switch state.Kind {
	case uistate.Submitting:
		page.AutoRefresh = true
	case uistate.Error:
		page.Error = state.Message
	case uistate.ShowingResult:
		advice, healthy := AdviceFor(state.Result.Class, healthyLabel)
		page.Result = &ResultPanel{
			Class:      state.Result.Class,
			Confidence: FormatConfidence(state.Result.Confidence),
			Healthy:    healthy,
			Advice:     advice,
		}
	}
	return page
}

// FormatConfidence renders a [0,1] score as a percentage with two decimals.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

func PreviewURL(imageID string) string {
	return "/preview/" + imageID
}
