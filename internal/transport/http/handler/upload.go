package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"mangoleaf/internal/app"
	"mangoleaf/internal/classifier"
	"mangoleaf/internal/transport/http/response"
)

const uploadField = "image"

var (
	errMissingFile    = errors.New("missing image file (form field 'image')")
	errUploadTooLarge = errors.New("upload too large")
)

func readUpload(c *gin.Context) (app.UploadInput, error) {
	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return app.UploadInput{}, errUploadTooLarge
		}
		return app.UploadInput{}, errMissingFile
	}

	f, err := fileHeader.Open()
	if err != nil {
		return app.UploadInput{}, fmt.Errorf("open uploaded file failed: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return app.UploadInput{}, fmt.Errorf("read uploaded file failed: %w", err)
	}

	return app.UploadInput{
		Filename:     fileHeader.Filename,
		DeclaredType: fileHeader.Header.Get("Content-Type"),
		Data:         data,
	}, nil
}

// isUserFacing reports errors that are already recorded in the session or
// are expected outcomes of user actions.
func isUserFacing(err error) bool {
	var validationErr *app.ValidationError
	var networkErr *classifier.NetworkError
	var protocolErr *classifier.ProtocolError
	return errors.As(err, &validationErr) ||
		errors.As(err, &networkErr) ||
		errors.As(err, &protocolErr) ||
		errors.Is(err, app.ErrSubmissionInFlight) ||
		errors.Is(err, app.ErrStaleSubmission) ||
		errors.Is(err, app.ErrImageNotFound)
}

func writeServiceError(c *gin.Context, err error) {
	var networkErr *classifier.NetworkError
	var protocolErr *classifier.ProtocolError
	switch {
	case errors.Is(err, errMissingFile):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, errUploadTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeUploadTooLarge, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNoFileSelected):
		response.Error(c, http.StatusBadRequest, response.CodeNoFileSelected, err.Error())
	case errors.Is(err, app.ErrNotAnImage):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeNotAnImage, err.Error())
	case errors.Is(err, app.ErrSubmissionInFlight):
		response.Error(c, http.StatusConflict, response.CodeSubmissionConflict, err.Error())
	case errors.Is(err, app.ErrStaleSubmission):
		response.Error(c, http.StatusConflict, response.CodeStaleSubmission, err.Error())
	case errors.Is(err, app.ErrImageNotFound):
		response.Error(c, http.StatusNotFound, response.CodeImageNotFound, err.Error())
	case errors.As(err, &networkErr):
		response.Error(c, http.StatusBadGateway, response.CodeClassifierNetwork, err.Error())
	case errors.As(err, &protocolErr):
		response.Error(c, http.StatusBadGateway, response.CodeClassifierProtocol, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "internal server error")
	}
}
