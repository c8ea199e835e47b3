package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API calls the server's HTTP routes. Redirects are not followed; the
// conference id is read from the Location header.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// CreateConference registers a conference and returns its id.
func (a *API) CreateConference(ctx context.Context, teacherName string) (string, error) {
	loc, err := a.redirect(ctx, "/create-conference?teacherName="+url.QueryEscape(teacherName))
	if err != nil {
		return "", err
	}
	id, ok := strings.CutPrefix(loc.Path, "/conference/")
	if !ok || id == "" {
		return "", fmt.Errorf("unexpected redirect to %s", loc)
	}
	return id, nil
}

// CheckConference asks the server whether a student may join confID.
func (a *API) CheckConference(ctx context.Context, confID, studentName string) error {
	q := url.Values{"confId": {confID}, "studentName": {studentName}}
	_, err := a.redirect(ctx, "/join-conference?"+q.Encode())
	return err
}

// ConferenceLink is the browser page for a conference.
func (a *API) ConferenceLink(confID string) string {
	return a.BaseURL + "/conference/" + url.PathEscape(confID)
}

func (a *API) redirect(ctx context.Context, path string) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
			return nil, &StatusError{Code: resp.StatusCode, Message: body.Error}
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: resp.Status}
	}
	return url.Parse(resp.Header.Get("Location"))
}

// StatusError is a non-redirect answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
