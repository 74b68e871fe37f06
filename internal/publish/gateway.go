package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// uploadRequest is the gateway wire format: file content travels base64-encoded
type uploadRequest struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
	ContentType string `json:"contentType"`
}

type uploadResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// GatewayClient uploads documents through the indirection gateway, which
// stores the payload and answers with a retrievable URL.
type GatewayClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGatewayClient creates a gateway client with a request timeout
func NewGatewayClient(endpoint string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Upload sends the document and returns the gateway's download URL
func (c *GatewayClient) Upload(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	payload, err := json.Marshal(uploadRequest{
		FileName:    fileName,
		FileContent: base64.StdEncoding.EncodeToString(data),
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("encode upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway upload: status %d: %s", resp.StatusCode, body)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if decoded.DownloadURL == "" {
		return "", fmt.Errorf("gateway response missing downloadUrl")
	}

	return decoded.DownloadURL, nil
}
