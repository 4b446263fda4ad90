package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps the login request body. Google ID tokens are a few KB.
const maxBodyBytes = 64 << 10

// Token field names, in order of precedence.
const (
	fieldIDToken       = "idToken"
	fieldGoogleIDToken = "googleIdToken"
)

var (
	errInvalidJSON  = &requestError{status: http.StatusBadRequest, msg: "Invalid JSON body."}
	errMissingToken = &requestError{status: http.StatusBadRequest, msg: "Missing idToken."}
)

// requestError is a failure that maps to a fixed status and message.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return fmt.Sprintf("%d: %s", e.status, e.msg) }

// readIDToken reads the request body and extracts the Google ID token.
func readIDToken(w http.ResponseWriter, r *http.Request) (string, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", errInvalidJSON
		}
		return "", fmt.Errorf("read body: %w", err)
	}
	return parseIDToken(raw)
}

// parseIDToken decodes body and returns the first non-empty string found under
// idToken or googleIdToken. A body that is itself a JSON string is decoded
// once more. Valid JSON that is not an object carries no token.
func parseIDToken(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", errInvalidJSON
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "", errInvalidJSON
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return "", errInvalidJSON
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return "", errMissingToken
	}
	for _, field := range []string{fieldIDToken, fieldGoogleIDToken} {
		if tok, ok := obj[field].(string); ok && tok != "" {
			return tok, nil
		}
	}
	return "", errMissingToken
}
