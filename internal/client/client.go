package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"alfredoptarigan/cv-formatter/internal/models"
)

// API is the part of the server the poller needs.
type API interface {
	Process(ctx context.Context, documentID, model string) (*models.ProcessResponse, error)
	Status(ctx context.Context, documentID string) (*models.StatusResponse, error)
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Process(ctx context.Context, documentID, model string) (*models.ProcessResponse, error) {
	var out models.ProcessResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/ai/process", models.ProcessRequest{CVID: documentID, Model: model}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, documentID string) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/ai/status/"+url.PathEscape(documentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Upload(ctx context.Context, filename string, contentType string, data []byte) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(filename)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/files", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Export downloads a rendered document. kind is "cv" or "registration".
func (c *Client) Export(ctx context.Context, documentID, kind string, dst io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/files/"+url.PathEscape(documentID)+"/export/"+kind, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("failed to download export: %w", err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var out models.SearchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/cvs/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
