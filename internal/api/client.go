package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/knowbase/kb-uploader/internal/model"
)

// Endpoint paths of the device upload service.
const (
	usagePath  = "/usage"
	uploadPath = "/upload_files"
	submitPath = "/upload"
	statusPath = "/status"
)

// Form field names fixed by the device service.
const (
	fileFieldName        = "files"
	schoolInfoFieldName  = "school_info"
	historyFieldName     = "history"
	celebritiesFieldName = "celebrities"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ServerError is a decoded device response carrying success=false. The
// message is server-supplied and shown to the user verbatim.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// UploadFile is one file of a multipart upload request, in selection order.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// ProgressFunc observes request-body bytes as the transport consumes them.
// n is the number of bytes newly sent, not a running total.
type ProgressFunc func(n int64)

// Client talks to the device upload service. One instance per base URL;
// safe for use from multiple goroutines.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
	}
}

// BaseURL returns the base URL of the device service.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchUsage reads the current storage usage snapshot.
func (c *Client) FetchUsage(ctx context.Context) (*model.UsageSnapshot, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, usagePath, "", nil, 0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result UsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, &ServerError{Message: result.Message}
	}

	snapshot := result.UsageSnapshot
	return &snapshot, nil
}

// UploadFiles sends the given files as one multipart request, preserving
// order. The progress callback may be nil. The request body is assembled
// up front so the request carries an exact Content-Length.
func (c *Client) UploadFiles(ctx context.Context, files []UploadFile, progress ProgressFunc) (*UploadResponse, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	body, contentType, err := buildMultipart(files)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = body
	if progress != nil {
		reader = &progressReader{r: body, progress: progress}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, uploadPath, contentType, reader, int64(body.Len()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, &ServerError{Message: result.Message}
	}

	return &result, nil
}

// SubmitKnowledge posts the knowledge form. Returns the server message on
// success.
func (c *Client) SubmitKnowledge(ctx context.Context, sub KnowledgeSubmission) (string, error) {
	form := url.Values{}
	form.Set(schoolInfoFieldName, sub.SchoolInfo)
	form.Set(historyFieldName, sub.History)
	form.Set(celebritiesFieldName, sub.Celebrities)

	body := strings.NewReader(form.Encode())
	resp, err := c.doRequest(ctx, http.MethodPost, submitPath, "application/x-www-form-urlencoded", body, int64(body.Len()))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseError(resp)
	}

	var result SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return "", &ServerError{Message: result.Message}
	}

	return result.Message, nil
}

// FetchStatus reads device info and knowledge-store statistics.
func (c *Client) FetchStatus(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, statusPath, "", nil, 0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, &ServerError{Message: result.Message}
	}

	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader, contentLength int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if body != nil && contentLength > 0 {
		req.ContentLength = contentLength
	}

	return c.client.Do(req)
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp SubmitResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &ServerError{Message: errResp.Message}
	}

	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
}

// buildMultipart assembles the upload body. Each file travels under the same
// repeated field name, in the order given.
func buildMultipart(files []UploadFile) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for _, f := range files {
		part, err := writer.CreateFormFile(fileFieldName, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("read file %q: %w", f.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return buf, writer.FormDataContentType(), nil
}

// progressReader reports bytes consumed from the underlying reader.
type progressReader struct {
	r        io.Reader
	progress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.progress(int64(n))
	}
	return n, err
}
