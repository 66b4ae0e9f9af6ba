package joke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultPublicIPURL = "http://checkip.amazonaws.com/"

// AddressResolver looks up the address clients should use to reach the server.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// HTTPResolver asks a checkip-style endpoint for the public IP. The endpoint
// must answer with the address as plain text.
type HTTPResolver struct {
	URL    string
	Client *http.Client
}

func (h HTTPResolver) Resolve(ctx context.Context) (string, error) {
	url := h.URL
	if url == "" {
		url = DefaultPublicIPURL
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("public ip: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("public ip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("public ip: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("public ip: %w", err)
	}
	addr := strings.TrimSpace(string(body))
	if addr == "" {
		return "", fmt.Errorf("public ip: empty response")
	}
	return addr, nil
}
