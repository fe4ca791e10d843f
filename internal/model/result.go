package model

// ClassificationResult is the validated body returned by the classifier.
type ClassificationResult struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}
