package classifier

import "fmt"

// Messages shown to the user for each failed validation stage.
const (
	MsgNonJSON    = "non-JSON response"
	MsgEmpty      = "empty response"
	MsgMalformed  = "malformed JSON"
	MsgBadShape   = "unexpected response shape"
	MsgTooLarge   = "oversized response"
	msgNetworkFmt = "classification request failed: HTTP status %d"
)

// NetworkError is a transport failure or a non-2xx status. StatusCode is zero
// when no response was received.
type NetworkError struct {
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf(msgNetworkFmt, e.StatusCode)
	}
	return fmt.Sprintf("classification request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError means the classifier answered but the body was unusable.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "classifier returned " + e.Reason
}
