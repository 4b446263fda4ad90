// Package middleware provides reusable HTTP middleware constructors.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// unknownError is reported when a failure carries no usable message.
const unknownError = "Unknown error"

// Recover returns a middleware that turns a panic in next into a 500 JSON
// response of the form {"error": message}. The panic value's message is used
// when it is an error or a non-empty string; anything else reports
// "Unknown error".
func Recover(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				msg := panicMessage(v)
				log.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  fmt.Sprint(v),
				}).Error("recovered from panic")
				writeError(w, http.StatusInternalServerError, msg)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func panicMessage(v any) string {
	var msg string
	switch e := v.(type) {
	case error:
		msg = e.Error()
	case string:
		msg = e
	}
	if msg == "" {
		return unknownError
	}
	return msg
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
