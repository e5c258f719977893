// Package paymentrail provides the HTTP client for the external payment or
// token rail. Delivery is best effort: the rewards forwarder retries failed
// transfers out-of-band and ledger correctness never depends on this client.
package paymentrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// Client posts credit transfers to the payment rail endpoint.
type Client struct {
	url     string
	token   string
	enabled bool
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a new payment rail client.
func NewClient(cfg *config.ForwarderConfig, log *logger.Logger) *Client {
	return &Client{
		url:     cfg.URL,
		token:   cfg.Token,
		enabled: cfg.Enabled,
		http:    &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		log:     log,
	}
}

// transferRequest is the rail's wire payload.
type transferRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// Forward sends one credit transfer. The reference is the ledger entry ID so
// the rail can deduplicate retried deliveries on its side.
func (c *Client) Forward(ctx context.Context, accountID string, amount int64, reference string) error {
	if !c.enabled {
		c.log.Debug().Msg("Payment rail is disabled, skipping transfer")
		return nil
	}

	payload, err := json.Marshal(transferRequest{
		AccountID: accountID,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach payment rail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment rail returned status %d: %s", resp.StatusCode, string(body))
	}

	c.log.Debug().
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("reference", reference).
		Msg("Forwarded credit to payment rail")

	return nil
}
