package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ai-teammate/google-signin/internal/auth"
	"github.com/ai-teammate/google-signin/internal/config"
	"github.com/ai-teammate/google-signin/internal/directory"
)

// unknownError is reported when a failure carries no message.
const unknownError = "Unknown error"

// Login outcomes reported to the LoginObserver.
const (
	OutcomeCreated     = "created"
	OutcomeExisting    = "existing"
	OutcomeRejected    = "rejected"
	OutcomeConfigError = "config_error"
	OutcomeFailed      = "failed"
)

var (
	errMethodNotAllowed = &requestError{status: http.StatusMethodNotAllowed, msg: "Method not allowed. Use POST."}
	errMissingEmail     = &requestError{status: http.StatusBadRequest, msg: "Google token missing email."}
	errEmailNotVerified = &requestError{status: http.StatusBadRequest, msg: "Email not verified."}
)

// LoginObserver is told the outcome of every login attempt.
// Satisfied by *middleware.Metrics.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// LoginDeps are the collaborators of the login handler.
type LoginDeps struct {
	// Config is called on every request so environment changes are picked up.
	Config   func() config.Config
	Verifier auth.TokenVerifier
	Open     directory.Opener
	// Observer is optional.
	Observer LoginObserver
	Log      logrus.FieldLogger
}

// LoginResponse is the JSON body returned on success.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// ErrorResponse is the JSON body of every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConfigErrorResponse is returned when required settings are missing.
type ConfigErrorResponse struct {
	Error         string            `json:"error"`
	Missing       []string          `json:"missing"`
	CurrentValues map[string]string `json:"currentValues"`
}

// configError reports incomplete configuration.
type configError struct {
	required []string
	missing  []string
	values   map[string]string
}

func (e *configError) Error() string {
	return "Missing env vars. Required: " + strings.Join(e.required, ", ") + "."
}

// NewLoginHandler returns an http.HandlerFunc that exchanges a Google ID token
// for a directory session token.
//
// The request body is a JSON object, or a JSON string holding one, with the
// token under "idToken" or "googleIdToken". The verified email is looked up in
// the directory; a user is created on first sight with a random credential
// nobody is told. The response carries the session token and the user.
func NewLoginHandler(deps LoginDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, created, err := login(w, r, deps)
		if err != nil {
			deps.observe(outcomeOf(err))
			deps.writeFailure(w, r, err)
			return
		}

		if created {
			deps.observe(OutcomeCreated)
		} else {
			deps.observe(OutcomeExisting)
		}
		deps.Log.WithFields(logrus.Fields{
			"user_id": resp.UserID,
			"created": created,
		}).Debug("login succeeded")
		writeJSON(w, http.StatusOK, resp)
	}
}

func login(w http.ResponseWriter, r *http.Request, deps LoginDeps) (*LoginResponse, bool, error) {
	if r.Method != http.MethodPost {
		return nil, false, errMethodNotAllowed
	}

	cfg := deps.Config()
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, false, &configError{
			required: cfg.Required(),
			missing:  missing,
			values:   cfg.CurrentValues(),
		}
	}

	idToken, err := readIDToken(w, r)
	if err != nil {
		return nil, false, err
	}

	ctx := r.Context()
	claims, err := deps.Verifier.Verify(ctx, idToken, cfg.GoogleClientID)
	if err != nil {
		return nil, false, err
	}
	if claims == nil || claims.Email == "" {
		return nil, false, errMissingEmail
	}
	if !claims.Verified() {
		return nil, false, errEmailNotVerified
	}

	dir, err := deps.Open(ctx, cfg)
	if err != nil {
		return nil, false, err
	}

	name := claims.DisplayName()
	userID, created, err := directory.Provision(ctx, dir, claims.Email, name)
	if err != nil {
		return nil, false, err
	}

	token, err := dir.IssueSession(ctx, userID)
	if err != nil {
		return nil, created, err
	}

	return &LoginResponse{
		Token:  token,
		UserID: userID,
		Email:  claims.Email,
		Name:   name,
	}, created, nil
}

func (d LoginDeps) observe(outcome string) {
	if d.Observer != nil {
		d.Observer.ObserveLogin(outcome)
	}
}

func outcomeOf(err error) string {
	var reqErr *requestError
	var cfgErr *configError
	switch {
	case errors.As(err, &reqErr):
		return OutcomeRejected
	case errors.As(err, &cfgErr):
		return OutcomeConfigError
	default:
		return OutcomeFailed
	}
}

// writeFailure maps err to a JSON error response and logs it.
func (d LoginDeps) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeJSON(w, reqErr.status, ErrorResponse{Error: reqErr.msg})
		return
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		d.Log.WithFields(logrus.Fields{
			"missing":        cfgErr.missing,
			"current_values": cfgErr.values,
		}).Warn("missing env vars")
		writeJSON(w, http.StatusInternalServerError, ConfigErrorResponse{
			Error:         cfgErr.Error(),
			Missing:       cfgErr.missing,
			CurrentValues: cfgErr.values,
		})
		return
	}

	d.Log.WithError(err).WithField("path", r.URL.Path).Error("login failed")
	msg := err.Error()
	if msg == "" {
		msg = unknownError
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msg})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
