package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"mangoleaf/internal/classifier"
	"mangoleaf/internal/model"
	"mangoleaf/internal/uistate"
	"mangoleaf/internal/vision"
)

// pendingGrace is added to the classifier timeout before a pending token is
// considered abandoned.
const pendingGrace = 10 * time.Second

type SessionStore interface {
	GetSession(ctx context.Context, id string) (*model.Session, bool, error)
	SetSession(ctx context.Context, session *model.Session) error
	GetBlob(ctx context.Context, key string) ([]byte, bool, error)
	SetBlob(ctx context.Context, key string, data []byte) error
	DeleteBlobs(ctx context.Context, keys ...string) error
}

type Classifier interface {
	Classify(ctx context.Context, upload classifier.Upload) (*model.ClassificationResult, error)
}

type AnalysisService struct {
	store          SessionStore
	classifier     Classifier
	locks          *sessionLocks
	pulse          time.Duration
	pendingTimeout time.Duration
	now            func() time.Time
}

type UploadInput struct {
	Filename     string
	DeclaredType string
	Data         []byte
}

// StateView is the JSON form of a session as the page sees it.
type StateView struct {
	State     uistate.State        `json:"state"`
	Image     *model.SelectedImage `json:"image,omitempty"`
	CanSubmit bool                 `json:"can_submit"`
	Session   *model.Session       `json:"-"`
}

func NewAnalysisService(store SessionStore, cls Classifier, pulse, classifierTimeout time.Duration) *AnalysisService {
	if pulse <= 0 {
		pulse = 1500 * time.Millisecond
	}
	if classifierTimeout <= 0 {
		classifierTimeout = 30 * time.Second
	}
	return &AnalysisService{
		store:          store,
		classifier:     cls,
		locks:          newSessionLocks(),
		pulse:          pulse,
		pendingTimeout: classifierTimeout + pendingGrace,
		now:            time.Now,
	}
}

func (s *AnalysisService) Pulse() time.Duration {
	return s.pulse
}

// Session returns the stored session or a fresh empty one.
func (s *AnalysisService) Session(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.pendingExpired(session) {
		session.ClearPending()
	}
	return session, nil
}

func (s *AnalysisService) State(ctx context.Context, sessionID string) (*StateView, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &StateView{
		State:     uistate.Derive(session, false, s.now(), s.pulse),
		Image:     session.Image,
		CanSubmit: uistate.CanSubmit(session),
		Session:   session,
	}, nil
}

// Upload replaces the selected image. Non-image files leave the session
// untouched and return ErrNotAnImage.
func (s *AnalysisService) Upload(ctx context.Context, sessionID string, input UploadInput) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	contentType := vision.DetectContentType(input.DeclaredType, input.Data)
	if !vision.IsImage(contentType) {
		return nil, ErrNotAnImage
	}

	image := &model.SelectedImage{
		ID:          uuid.NewString(),
		Filename:    sanitizeFilename(input.Filename),
		ContentType: contentType,
		Size:        int64(len(input.Data)),
		UploadedAt:  s.now(),
	}
	preview := vision.MakePreview(contentType, input.Data)
	image.PreviewContentType = preview.ContentType

	if err := s.store.SetBlob(ctx, model.ImageKey(image.ID), input.Data); err != nil {
		return nil, err
	}
	if err := s.store.SetBlob(ctx, model.PreviewKey(image.ID), preview.Data); err != nil {
		s.release(ctx, image)
		return nil, err
	}

	unlock := s.locks.lock(sessionID)
	session, err := s.load(ctx, sessionID)
	if err != nil {
		unlock()
		s.release(ctx, image)
		return nil, err
	}
	previous := session.Image
	session.Image = image
	session.ClearOutcome()
	session.ClearPending()
	err = s.save(ctx, session)
	unlock()
	if err != nil {
		s.release(ctx, image)
		return nil, err
	}

	s.release(ctx, previous)
	return session, nil
}

// Submit classifies the selected image. The outcome is written to the session
// only if no newer selection or submission replaced this one meanwhile.
func (s *AnalysisService) Submit(ctx context.Context, sessionID string) (*model.ClassificationResult, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	token, image, err := s.beginSubmit(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// The outbound call is not cancelled when the browser goes away.
	workCtx := context.WithoutCancel(ctx)

	data, found, err := s.store.GetBlob(workCtx, model.ImageKey(image.ID))
	if err != nil {
		return nil, s.finish(workCtx, sessionID, token, nil, err)
	}
	if !found {
		return nil, s.finish(workCtx, sessionID, token, nil, ErrImageNotFound)
	}

	result, classifyErr := s.classifier.Classify(workCtx, classifier.Upload{
		Filename:    image.Filename,
		ContentType: image.ContentType,
		Data:        data,
	})
	if classifyErr != nil {
		log.Printf("classify session %s failed: %v", sessionID, classifyErr)
	}
	if err := s.finish(workCtx, sessionID, token, result, classifyErr); err != nil {
		return nil, err
	}
	return result, nil
}

// Reset drops the selected image together with any result or error.
func (s *AnalysisService) Reset(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	unlock := s.locks.lock(sessionID)
	session, err := s.load(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	previous := session.Image
	session.Image = nil
	session.ClearOutcome()
	session.ClearPending()
	err = s.save(ctx, session)
	unlock()
	if err != nil {
		return nil, err
	}

	s.release(ctx, previous)
	return session, nil
}

// Preview returns the preview of the session's current image. Images that
// belong to other sessions or were superseded are reported as not found.
func (s *AnalysisService) Preview(ctx context.Context, sessionID, imageID string) (*vision.Preview, error) {
	if sessionID == "" || imageID == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Image == nil || session.Image.ID != imageID {
		return nil, ErrImageNotFound
	}
	data, found, err := s.store.GetBlob(ctx, model.PreviewKey(imageID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrImageNotFound
	}
	return &vision.Preview{ContentType: session.Image.PreviewContentType, Data: data}, nil
}

func (s *AnalysisService) beginSubmit(ctx context.Context, sessionID string) (string, *model.SelectedImage, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	if session.Image == nil {
		session.Result = nil
		session.Error = ErrNoFileSelected.Error()
		if err := s.save(ctx, session); err != nil {
			return "", nil, err
		}
		return "", nil, ErrNoFileSelected
	}
	if session.Pending != "" && !s.pendingExpired(session) {
		return "", nil, ErrSubmissionInFlight
	}

	token := uuid.NewString()
	session.Pending = token
	session.PendingSince = s.now()
	session.ClearOutcome()
	if err := s.save(ctx, session); err != nil {
		return "", nil, err
	}
	image := *session.Image
	return token, &image, nil
}

func (s *AnalysisService) finish(ctx context.Context, sessionID, token string, result *model.ClassificationResult, outcome error) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Pending != token {
		log.Printf("discarding stale classification for session %s", sessionID)
		return ErrStaleSubmission
	}

	session.ClearPending()
	if outcome != nil {
		session.Result = nil
		session.Error = userMessage(outcome)
	} else {
		session.Result = result
		session.Error = ""
	}
	if err := s.save(ctx, session); err != nil {
		return err
	}
	return outcome
}

func (s *AnalysisService) pendingExpired(session *model.Session) bool {
	if session.Pending == "" {
		return false
	}
	return s.now().Sub(session.PendingSince) > s.pendingTimeout
}

func (s *AnalysisService) load(ctx context.Context, sessionID string) (*model.Session, error) {
	session, found, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	if !found {
		return &model.Session{ID: sessionID}, nil
	}
	return session, nil
}

func (s *AnalysisService) save(ctx context.Context, session *model.Session) error {
	session.UpdatedAt = s.now()
	if err := s.store.SetSession(ctx, session); err != nil {
		return fmt.Errorf("save session failed: %w", err)
	}
	return nil
}

func (s *AnalysisService) release(ctx context.Context, image *model.SelectedImage) {
	if image == nil {
		return
	}
	if err := s.store.DeleteBlobs(ctx, model.ImageKey(image.ID), model.PreviewKey(image.ID)); err != nil {
		log.Printf("release image %s failed: %v", image.ID, err)
	}
}

func userMessage(err error) string {
	var validationErr *ValidationError
	var networkErr *classifier.NetworkError
	var protocolErr *classifier.ProtocolError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &networkErr), errors.As(err, &protocolErr):
		return err.Error()
	case errors.Is(err, ErrImageNotFound):
		return "the selected image is no longer available, please choose it again"
	default:
		return "something went wrong while processing the image"
	}
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "upload"
	}
	return name
}
