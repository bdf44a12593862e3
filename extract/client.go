// Package extract talks to the external AI extraction service. The service
// takes a document (PDF or image) plus an optional prompt and returns
// structured JSON suitable for loading into a spreadsheet.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const maxImageEdge = 2048

type Client struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

func NewClient() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("EXTRACTION_API_URL"))
	if baseURL == "" {
		return nil, errors.New("EXTRACTION_API_URL is required")
	}
	apiKey := strings.TrimSpace(os.Getenv("EXTRACTION_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("EXTRACTION_API_KEY is required")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("EXTRACTION_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}

	timeout := 120 * time.Second
	if v := strings.TrimSpace(os.Getenv("EXTRACTION_TIMEOUT_SECONDS")); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

type extractResponse struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Status string          `json:"status"`
}

// Extract submits the file and returns the raw structured JSON. Large
// images are downscaled before upload to keep requests within the
// service's size limits; PDFs pass through untouched.
func (c *Client) Extract(ctx context.Context, filename, contentType string, data []byte, prompt string) (json.RawMessage, error) {
	if strings.HasPrefix(contentType, "image/") {
		if scaled, err := downscaleImage(data); err == nil {
			data = scaled
			contentType = "image/jpeg"
		}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed extractResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("extraction failed: %s", parsed.Error)
	}
	if len(parsed.Data) == 0 {
		// some deployments return the structure at the top level
		return json.RawMessage(respBody), nil
	}
	return parsed.Data, nil
}

func downscaleImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxImageEdge && bounds.Dy() <= maxImageEdge {
		return data, nil
	}

	if bounds.Dx() >= bounds.Dy() {
		img = imaging.Resize(img, maxImageEdge, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxImageEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
