package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"mangoleaf/internal/model"
)

const maxResponseSize = 1 << 20

// Upload is the file handed to the classifier.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client posts images to the remote classification endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	fieldName  string
}

func NewClient(endpoint, fieldName string, timeout time.Duration) *Client {
	if fieldName == "" {
		fieldName = "image"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		fieldName:  fieldName,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Classify sends one multipart request and validates the answer. Errors are
// *NetworkError or *ProtocolError, except for request construction failures.
func (c *Client) Classify(ctx context.Context, upload Upload) (*model.ClassificationResult, error) {
	body, contentType, err := c.buildBody(upload)
	if err != nil {
		return nil, fmt.Errorf("build classifier request body failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build classifier request failed: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{StatusCode: resp.StatusCode}
	}

	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		return nil, &ProtocolError{Reason: MsgNonJSON}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read classifier response: %w", err)}
	}
	if len(raw) > maxResponseSize {
		log.Printf("classifier response exceeds %d bytes", maxResponseSize)
		return nil, &ProtocolError{Reason: MsgTooLarge}
	}

	return parseResult(raw)
}

func (c *Client) buildBody(upload Upload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := upload.Filename
	if filename == "" {
		filename = "upload"
	}
	partType := upload.ContentType
	if partType == "" {
		partType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     c.fieldName,
		"filename": filename,
	}))
	header.Set("Content-Type", partType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func parseResult(raw []byte) (*model.ClassificationResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ProtocolError{Reason: MsgEmpty}
	}
	if !json.Valid(raw) {
		log.Printf("classifier raw response: %s", raw)
		return nil, &ProtocolError{Reason: MsgMalformed}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &ProtocolError{Reason: MsgBadShape}
	}
	class, ok := fields["class"].(string)
	if !ok || class == "" {
		return nil, &ProtocolError{Reason: MsgBadShape}
	}
	confidence, ok := fields["confidence"].(float64)
	if !ok {
		return nil, &ProtocolError{Reason: MsgBadShape}
	}

	return &model.ClassificationResult{Class: class, Confidence: confidence}, nil
}

func isJSONContentType(value string) bool {
	if value == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.Contains(value, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
