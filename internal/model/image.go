package model

import "time"

// SelectedImage is the file the user picked. Its bytes live in the session
// store under ID; the preview is stored under PreviewKey(ID).
type SelectedImage struct {
	ID                 string    `json:"id"`
	Filename           string    `json:"filename"`
	ContentType        string    `json:"content_type"`
	Size               int64     `json:"size"`
	PreviewContentType string    `json:"preview_content_type"`
	UploadedAt         time.Time `json:"uploaded_at"`
}

func ImageKey(id string) string {
	return "image:" + id
}

func PreviewKey(id string) string {
	return "preview:" + id
}
