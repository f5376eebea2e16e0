package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// HTTPClient submits buyer batches to the external enrichment endpoint as
// JSON. A non-2xx response is a batch failure; the service layer decides
// how many of those to tolerate.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type batchPayload struct {
	BuyerIDs []uuid.UUID `json:"buyer_ids"`
}

func (c *HTTPClient) SubmitBatch(ctx context.Context, buyerIDs []uuid.UUID) error {
	if c.endpoint == "" {
		return errors.New("enrichment endpoint is not configured")
	}
	body, err := json.Marshal(batchPayload{BuyerIDs: buyerIDs})
	if err != nil {
		return errors.Wrap(err, "failed to encode enrichment batch")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "enrichment batch submission failed")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("enrichment endpoint returned %d", resp.StatusCode)
	}
	return nil
}
