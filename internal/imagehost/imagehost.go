// Package imagehost uploads raw image files to the configured third-party
// image host and returns the opaque URL the host assigns. Failures here are
// isolated to the upload operation; they never touch the document model.
package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrNoCredentials reports that no API key is configured. Distinct from an
// upstream failure so the editor can tell the author to configure the host
// rather than retry.
var ErrNoCredentials = errors.New("image host: api key not configured")

// UploadError reports an upstream failure.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("image host: HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("image host: HTTP %d", e.StatusCode)
}

// Client talks to the image-hosting collaborator.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// New creates a client. The api key value is environment-expanded so
// configs can reference $IMAGE_HOST_KEY instead of embedding secrets.
func New(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(os.ExpandEnv(apiKey)),
		client:   &http.Client{Timeout: timeout},
	}
}

// Upload sends the file and returns the hosted image URL.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoCredentials
	}
	if c.endpoint == "" {
		return "", fmt.Errorf("image host: endpoint not configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("image host: build request: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", fmt.Errorf("image host: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("image host: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("image host: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image host: upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("image host: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	url := strings.TrimSpace(string(raw))
	if url == "" {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: "empty response"}
	}
	return url, nil
}
