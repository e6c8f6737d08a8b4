package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dom/hero-arena/internal/domain"
)

// PeerClient delivers import batches to the arena named as export target.
type PeerClient struct {
	httpClient *http.Client
}

func NewPeerClient(timeout time.Duration) *PeerClient {
	return &PeerClient{httpClient: &http.Client{Timeout: timeout}}
}

func (c *PeerClient) Deliver(ctx context.Context, effect *domain.OutboxEffect) error {
	endpoint := strings.TrimRight(effect.URL, "/") + "/api/v1/migration/import"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(effect.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if effect.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+effect.Credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send import batch to %s: %w", effect.Destination, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("import batch rejected by %s (status %d): %s", effect.Destination, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
