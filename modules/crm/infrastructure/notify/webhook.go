package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
)

// WebhookDispatcher posts decision notices to the configured webhook. With
// an empty URL it is a no-op, which keeps local setups quiet.
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type decisionNotice struct {
	RequestID string     `json:"request_id"`
	BuyerID   *string    `json:"buyer_id,omitempty"`
	ListingID string     `json:"listing_id"`
	Status    string     `json:"status"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

func (d *WebhookDispatcher) DispatchDecision(ctx context.Context, r *request.ConnectionRequest) error {
	if d.url == "" {
		return nil
	}
	notice := decisionNotice{
		RequestID: r.ID.String(),
		ListingID: r.ListingID.String(),
		Status:    string(r.Status),
		DecidedAt: r.DecisionAt,
	}
	if r.BuyerID != nil {
		buyerID := r.BuyerID.String()
		notice.BuyerID = &buyerID
	}
	body, err := json.Marshal(notice)
	if err != nil {
		return errors.Wrap(err, "failed to encode decision notice")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to deliver decision notice")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
