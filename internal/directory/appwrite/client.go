// Package appwrite is a Directory backed by the Appwrite Users REST API.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ai-teammate/google-signin/internal/directory"
)

// uniqueID asks Appwrite to generate the user id server-side.
const uniqueID = "unique()"

// HTTPDoer abstracts http.Client.Do so that tests can inject a stub.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error is a non-2xx response from Appwrite.
type Error struct {
	Status  int
	Message string
	Type    string
}

func (e *Error) Error() string { return e.Message }

// Client calls the Appwrite server API with an API key.
type Client struct {
	Endpoint  string
	ProjectID string
	APIKey    string
	HTTP      HTTPDoer
}

var _ directory.Directory = (*Client)(nil)

// New constructs a Client. A trailing slash on endpoint is ignored.
func New(endpoint, projectID, apiKey string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		Endpoint:  strings.TrimSuffix(endpoint, "/"),
		ProjectID: projectID,
		APIKey:    apiKey,
		HTTP:      doer,
	}
}

// user is the subset of the Appwrite user model this service reads.
type user struct {
	ID    string `json:"$id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u user) toDirectory() directory.User {
	return directory.User{ID: u.ID, Email: u.Email, Name: u.Name}
}

type userList struct {
	Total int    `json:"total"`
	Users []user `json:"users"`
}

type createUserBody struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type jwtResponse struct {
	JWT string `json:"jwt"`
}

// query is an Appwrite JSON query (server 1.5+ wire format).
type query struct {
	Method    string   `json:"method"`
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// FindUsersByEmail lists users whose email equals email.
func (c *Client) FindUsersByEmail(ctx context.Context, email string) ([]directory.User, error) {
	q, err := json.Marshal(query{Method: "equal", Attribute: "email", Values: []string{email}})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	params := url.Values{"queries[]": {string(q)}}

	var list userList
	if err := c.do(ctx, http.MethodGet, "/users?"+params.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if list.Total == 0 || len(list.Users) == 0 {
		return nil, nil
	}
	out := make([]directory.User, 0, len(list.Users))
	for _, u := range list.Users {
		out = append(out, u.toDirectory())
	}
	return out, nil
}

// CreateUser creates a user with a server-generated id.
func (c *Client) CreateUser(ctx context.Context, u directory.NewUser) (*directory.User, error) {
	body := createUserBody{
		UserID:   uniqueID,
		Email:    u.Email,
		Password: u.Password,
		Name:     u.Name,
	}
	var created user
	if err := c.do(ctx, http.MethodPost, "/users", body, &created); err != nil {
		return nil, err
	}
	out := created.toDirectory()
	return &out, nil
}

// IssueSession creates a short-lived Appwrite JWT for userID.
func (c *Client) IssueSession(ctx context.Context, userID string) (string, error) {
	var resp jwtResponse
	path := "/users/" + url.PathEscape(userID) + "/jwt"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.JWT, nil
}

// errorBody is Appwrite's error envelope.
type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// do sends one authenticated request. A nil body sends no payload; out, when
// non-nil, receives the decoded 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal appwrite request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("build appwrite request: %w", err)
	}
	req.Header.Set("X-Appwrite-Project", c.ProjectID)
	req.Header.Set("X-Appwrite-Key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read appwrite response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Message = eb.Message
			apiErr.Type = eb.Type
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("Appwrite error %d", resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode appwrite response: %w", err)
	}
	return nil
}
