package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrAPIUnavailable reports that no daemon answered at the configured address.
var ErrAPIUnavailable = errors.New("encore API unavailable")

// Multipart field names accepted by the submission endpoints. Plain fields
// must precede the file part.
const (
	FieldFile  = "file"
	FieldAudio = "audio"
	FieldJobID = "jobId"
)

// StatusError is a non-2xx response from the daemon.
type StatusError struct {
	Code    int
	Message string
	Kind    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client talks to the daemon HTTP API on behalf of one user.
type Client struct {
	base  *url.URL
	token string
	user  string
	http  *http.Client
}

// NewClient builds a client for the daemon bound at bind.
func NewClient(bind, token, user string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrAPIUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		user:  strings.TrimSpace(user),
		// Uploads can be large; callers bound requests through ctx.
		http: &http.Client{},
	}, nil
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &out)
	return out, err
}

// Jobs lists the user's jobs newest first.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	var out JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Job fetches one job.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var out Job
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), "", nil, &out)
	return out, err
}

// DeleteJob removes a finished job.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), "", nil, nil)
}

// SubmitJob uploads a source file and returns the new job id.
func (c *Client) SubmitJob(ctx context.Context, filename string, r io.Reader) (SubmitResponse, error) {
	return c.upload(ctx, "/api/jobs", nil, FieldFile, filename, r)
}

// SubmitRecording uploads a captured take, optionally tied to jobID.
func (c *Client) SubmitRecording(ctx context.Context, filename, jobID string, r io.Reader) (SubmitResponse, error) {
	fields := map[string]string{}
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		fields[FieldJobID] = jobID
	}
	return c.upload(ctx, "/api/recordings", fields, FieldAudio, filename, r)
}

// Recordings lists the user's recordings newest first.
func (c *Client) Recordings(ctx context.Context) ([]Recording, error) {
	var out RecordingListResponse
	if err := c.do(ctx, http.MethodGet, "/api/recordings", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Recordings, nil
}

// DeleteRecording removes a recording.
func (c *Client) DeleteRecording(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/recordings/"+url.PathEscape(id), "", nil, nil)
}

func (c *Client) upload(ctx context.Context, endpoint string, fields map[string]string, fileField, filename string, r io.Reader) (SubmitResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			for key, value := range fields {
				if err := mw.WriteField(key, value); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile(fileField, filepath.Base(filename))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, r); err != nil {
				return err
			}
			return mw.Close()
		}()
		_ = pw.CloseWithError(err)
	}()

	var out SubmitResponse
	err := c.do(ctx, http.MethodPost, endpoint, mw.FormDataContentType(), pr, &out)
	_ = pr.Close()
	return out, err
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	target := c.base.ResolveReference(&url.URL{Path: endpoint})
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.user != "" {
		req.Header.Set(UserHeader, c.user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error, Kind: payload.Kind}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
