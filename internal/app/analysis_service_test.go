package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangoleaf/internal/cache"
	"mangoleaf/internal/classifier"
	"mangoleaf/internal/model"
	"mangoleaf/internal/uistate"
)

type fakeClassifier struct {
	mu     sync.Mutex
	calls  []classifier.Upload
	result *model.ClassificationResult
	err    error
	// gate, when set, blocks Classify until a value is received.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeClassifier) Classify(_ context.Context, upload classifier.Upload) (*model.ClassificationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, upload)
	gate, entered := f.gate, f.entered
	result, err := f.result, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return result, err
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newTestService(cls Classifier) (*AnalysisService, *cache.MemorySessionStore) {
	store := cache.NewMemorySessionStore(time.Hour)
	return NewAnalysisService(store, cls, 1500*time.Millisecond, time.Second), store
}

func TestSubmitWithoutFileIsValidationError(t *testing.T) {
	cls := &fakeClassifier{}
	svc, _ := newTestService(cls)
	ctx := context.Background()

	result, err := svc.Submit(ctx, "s1")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrNoFileSelected))

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Zero(t, cls.callCount())

	view, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uistate.Error, view.State.Kind)
	assert.Equal(t, "no file selected", view.State.Message)
	assert.False(t, view.CanSubmit)
}

func TestUploadRejectsNonImage(t *testing.T) {
	cls := &fakeClassifier{result: &model.ClassificationResult{Class: "Anthracnose", Confidence: 0.81}}
	svc, store := newTestService(cls)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "s1")
	require.NoError(t, err)
	before, err := svc.Session(ctx, "s1")
	require.NoError(t, err)

	_, err = svc.Upload(ctx, "s1", UploadInput{Filename: "notes.txt", DeclaredType: "text/plain", Data: []byte("hello")})
	assert.True(t, errors.Is(err, ErrNotAnImage))

	after, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before.Image, after.Image)
	assert.Equal(t, before.Result, after.Result)
	assert.Equal(t, before.Error, after.Error)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, 2, store.BlobCount())

	// An earlier error also survives a rejected file.
	cls.mu.Lock()
	cls.result, cls.err = nil, &classifier.NetworkError{StatusCode: 500}
	cls.mu.Unlock()
	_, err = svc.Submit(ctx, "s1")
	require.Error(t, err)
	failed, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, failed.Error)

	_, err = svc.Upload(ctx, "s1", UploadInput{Filename: "notes.txt", DeclaredType: "text/plain", Data: []byte("hello")})
	assert.True(t, errors.Is(err, ErrNotAnImage))

	again, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, failed.Error, again.Error)
	assert.Nil(t, again.Result)
	assert.Equal(t, failed.Image.ID, again.Image.ID)
}

func TestActiveSessionKeepsItsImage(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewMemorySessionStore(time.Minute).WithClock(clock)
	cls := &fakeClassifier{err: &classifier.ProtocolError{Reason: classifier.MsgEmpty}}
	svc := NewAnalysisService(store, cls, 1500*time.Millisecond, time.Second)
	svc.now = clock
	ctx := context.Background()

	uploaded, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)
	imageID := uploaded.Image.ID

	// A failed submission still saves the session and must carry the image with it.
	now = now.Add(40 * time.Second)
	_, err = svc.Submit(ctx, "s1")
	require.Error(t, err)

	now = now.Add(40 * time.Second)

	view, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, view.Image)
	assert.Equal(t, imageID, view.Image.ID)

	preview, err := svc.Preview(ctx, "s1", imageID)
	require.NoError(t, err)
	assert.NotEmpty(t, preview.Data)

	cls.mu.Lock()
	cls.err = nil
	cls.result = &model.ClassificationResult{Class: "Healthy", Confidence: 0.9}
	cls.mu.Unlock()
	result, err := svc.Submit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Healthy", result.Class)
}

func TestUploadSniffsMissingType(t *testing.T) {
	svc, _ := newTestService(&fakeClassifier{})

	session, err := svc.Upload(context.Background(), "s1", UploadInput{Filename: `C:\photos\leaf.png`, Data: pngData(t)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", session.Image.ContentType)
	assert.Equal(t, "leaf.png", session.Image.Filename)
	assert.Equal(t, "image/jpeg", session.Image.PreviewContentType)
}

func TestUploadClearsOutcomeAndReleasesPreviousImage(t *testing.T) {
	cls := &fakeClassifier{err: &classifier.ProtocolError{Reason: classifier.MsgEmpty}}
	svc, store := newTestService(cls)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "s1", UploadInput{Filename: "a.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)
	firstID := first.Image.ID

	_, err = svc.Submit(ctx, "s1")
	require.Error(t, err)
	session, _ := svc.Session(ctx, "s1")
	require.NotEmpty(t, session.Error)

	second, err := svc.Upload(ctx, "s1", UploadInput{Filename: "b.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)
	assert.NotEqual(t, firstID, second.Image.ID)
	assert.Empty(t, second.Error)
	assert.Nil(t, second.Result)
	assert.Equal(t, 2, store.BlobCount())

	_, err = svc.Preview(ctx, "s1", firstID)
	assert.True(t, errors.Is(err, ErrImageNotFound))
}

func TestSubmitSuccess(t *testing.T) {
	cls := &fakeClassifier{result: &model.ClassificationResult{Class: "Healthy", Confidence: 0.93}}
	svc, _ := newTestService(cls)
	ctx := context.Background()

	data := pngData(t)
	_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: data})
	require.NoError(t, err)

	result, err := svc.Submit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Healthy", result.Class)
	require.Equal(t, 1, cls.callCount())
	assert.Equal(t, data, cls.calls[0].Data)
	assert.Equal(t, "image/png", cls.calls[0].ContentType)

	view, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uistate.ShowingResult, view.State.Kind)
	assert.Empty(t, view.Session.Error)
	assert.Empty(t, view.Session.Pending)
	assert.True(t, view.CanSubmit)
}

func TestSubmitFailureRecordsMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "network", err: &classifier.NetworkError{StatusCode: 500}, want: "HTTP status 500"},
		{name: "non-json", err: &classifier.ProtocolError{Reason: classifier.MsgNonJSON}, want: "non-JSON response"},
		{name: "shape", err: &classifier.ProtocolError{Reason: classifier.MsgBadShape}, want: "unexpected response shape"},
		{name: "unknown", err: errors.New("boom"), want: "something went wrong"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cls := &fakeClassifier{err: tc.err}
			svc, _ := newTestService(cls)
			ctx := context.Background()
			_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
			require.NoError(t, err)

			_, err = svc.Submit(ctx, "s1")
			assert.ErrorIs(t, err, tc.err)

			session, err := svc.Session(ctx, "s1")
			require.NoError(t, err)
			assert.Contains(t, session.Error, tc.want)
			assert.Nil(t, session.Result)
			assert.NotNil(t, session.Image)
		})
	}
}

func TestSubmitRejectsSecondInFlight(t *testing.T) {
	cls := &fakeClassifier{
		result:  &model.ClassificationResult{Class: "Healthy", Confidence: 1},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	svc, _ := newTestService(cls)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "s1")
		done <- err
	}()
	<-cls.entered

	view, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uistate.Submitting, view.State.Kind)
	assert.False(t, view.CanSubmit)

	_, err = svc.Submit(ctx, "s1")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(cls.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, cls.callCount())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	cls := &fakeClassifier{
		result:  &model.ClassificationResult{Class: "Anthracnose", Confidence: 0.41},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	svc, _ := newTestService(cls)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "old.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "s1")
		done <- err
	}()
	<-cls.entered

	newer, err := svc.Upload(ctx, "s1", UploadInput{Filename: "new.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)

	close(cls.gate)
	assert.ErrorIs(t, <-done, ErrStaleSubmission)

	session, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, session.Result)
	assert.Empty(t, session.Error)
	assert.Equal(t, newer.Image.ID, session.Image.ID)
}

func TestAbandonedPendingExpires(t *testing.T) {
	cls := &fakeClassifier{result: &model.ClassificationResult{Class: "Healthy", Confidence: 1}}
	svc, store := newTestService(cls)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)
	session, _ := svc.Session(ctx, "s1")
	session.Pending = "lost-token"
	session.PendingSince = now
	require.NoError(t, store.SetSession(ctx, session))

	_, err = svc.Submit(ctx, "s1")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	now = now.Add(time.Minute)
	_, err = svc.Submit(ctx, "s1")
	require.NoError(t, err)
}

func TestResetAndPreview(t *testing.T) {
	svc, store := newTestService(&fakeClassifier{})
	ctx := context.Background()

	session, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)
	imageID := session.Image.ID

	preview, err := svc.Preview(ctx, "s1", imageID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", preview.ContentType)
	assert.NotEmpty(t, preview.Data)

	_, err = svc.Preview(ctx, "someone-else", imageID)
	assert.ErrorIs(t, err, ErrImageNotFound)

	reset, err := svc.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, reset.Image)
	assert.Zero(t, store.BlobCount())

	_, err = svc.Preview(ctx, "s1", imageID)
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestJustUploadedPulse(t *testing.T) {
	svc, _ := newTestService(&fakeClassifier{})
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Upload(ctx, "s1", UploadInput{Filename: "leaf.png", DeclaredType: "image/png", Data: pngData(t)})
	require.NoError(t, err)

	view, _ := svc.State(ctx, "s1")
	assert.Equal(t, uistate.JustUploaded, view.State.Kind)

	now = now.Add(2 * time.Second)
	view, _ = svc.State(ctx, "s1")
	assert.Equal(t, uistate.FileSelected, view.State.Kind)
}

func TestEmptySessionIDIsInvalid(t *testing.T) {
	svc, _ := newTestService(&fakeClassifier{})
	_, err := svc.Submit(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
