package assetregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dom/hero-arena/internal/domain"
)

// Querier reads a token's private metadata. It blocks the calling
// invocation.
type Querier interface {
	PrivateMetadata(ctx context.Context, contract domain.CardContract, tokenID, viewer, viewingKey string) (*Metadata, error)
}

// Client is the HTTP client for card contracts.
type Client struct {
	httpClient *http.Client
	instanceID string
}

// NewClient creates a client that identifies itself as instanceID.
func NewClient(instanceID string, timeout time.Duration) *Client {
	return &Client{
		instanceID: instanceID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PrivateMetadata fetches GET {url}/tokens/{id}/private-metadata as viewer.
// A token without private metadata is reported as missing hero stats; any
// other failure as a failed registry query.
func (c *Client) PrivateMetadata(ctx context.Context, contract domain.CardContract, tokenID, viewer, viewingKey string) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/tokens/%s/private-metadata?viewer=%s",
		contract.URL, url.PathEscape(tokenID), url.QueryEscape(viewer))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryQuery, err)
	}
	req.Header.Set("X-Viewing-Key", viewingKey)
	req.Header.Set("X-Arena-Instance", c.instanceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryQuery, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrMissingHeroStats
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRegistryQuery, resp.StatusCode, string(body))
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidHeroStats, err)
	}
	return &meta, nil
}

// Deliver posts an outbox effect to {url}/effects/{kind}.
func (c *Client) Deliver(ctx context.Context, effect *domain.OutboxEffect) error {
	endpoint := fmt.Sprintf("%s/effects/%s", effect.URL, effect.Kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(effect.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Arena-Instance", c.instanceID)
	req.Header.Set("Idempotency-Key", fmt.Sprintf("%s-%d", c.instanceID, effect.ID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", effect.Kind, effect.Destination, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("deliver %s to %s failed (status %d): %s", effect.Kind, effect.Destination, resp.StatusCode, string(body))
	}
	return nil
}
