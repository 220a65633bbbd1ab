package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client talks to a Drive-style files API.
type Client struct {
	apiURL     string
	uploadURL  string
	httpClient *http.Client
}

// NewClient constructs a client. A nil httpClient gets one with the provided timeout.
func NewClient(apiURL, uploadURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		uploadURL:  strings.TrimSuffix(uploadURL, "/"),
		httpClient: httpClient,
	}
}

// UploadFile sends the file as a single multipart request and returns the new file id.
func (c *Client) UploadFile(ctx context.Context, token string, file remote.File) (string, error) {
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	meta := fileMetadata{Name: file.Name, MimeType: mimeType}
	if file.ParentID != "" {
		meta.Parents = []string{file.ParentID}
	}

	body, contentType, err := buildMultipart(meta, file.Data)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/files?uploadType=multipart", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	return c.doCreate(req, token, "drive upload")
}

// CreateFolder creates a folder under the provider root and returns its id.
func (c *Client) CreateFolder(ctx context.Context, token, name string) (string, error) {
	payload, err := json.Marshal(fileMetadata{Name: name, MimeType: folderMimeType, Parents: []string{remote.Root}})
	if err != nil {
		return "", fmt.Errorf("encode folder: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/files", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build folder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doCreate(req, token, "drive create folder")
}

// Delete removes the resource. A 404 counts as success.
func (c *Client) Delete(ctx context.Context, token, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiURL+"/files/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	err = c.do(req, token, "drive delete", nil)
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}

// Move swaps the file's parent in one PATCH call.
func (c *Client) Move(ctx context.Context, token, fileID, fromParentID, toParentID string) error {
	q := url.Values{}
	q.Set("addParents", remote.ParentOrRoot(toParentID))
	q.Set("removeParents", remote.ParentOrRoot(fromParentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.apiURL+"/files/"+url.PathEscape(fileID)+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build move request: %w", err)
	}

	return c.do(req, token, "drive move", nil)
}

func (c *Client) doCreate(req *http.Request, token, op string) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(req, token, op, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%s: response carried no id", op)
	}
	return created.ID, nil
}

func (c *Client) do(req *http.Request, token, op string, out any) error {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, remote.ErrAuthRejected)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, remote.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &remote.StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

var _ remote.Store = (*Client)(nil)
