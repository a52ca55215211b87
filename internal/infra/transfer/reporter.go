// internal/infra/transfer/reporter.go
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/app"
	"volume_guard_worker/internal/domain/billing"
)

const defaultTimeout = 5 * time.Second

type payload struct {
	AccountID string      `json:"accountId"`
	InvoiceID string      `json:"invoiceId"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency"`
}

// Reporter posts every applied reschedule to an external transfer log.
type Reporter struct {
	url       string
	secret    string
	accountID string
	client    *http.Client
	logger    *logrus.Entry
}

// NewReporter returns nil when url is empty; callers skip registering it.
func NewReporter(url, secret, accountID string, client *http.Client, logger *logrus.Entry) *Reporter {
	if url == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Reporter{
		url:       url,
		secret:    secret,
		accountID: accountID,
		client:    client,
		logger:    logger.WithField("component", "transfer_reporter"),
	}
}

func (r *Reporter) Name() string { return "transfer_reporter" }

// AfterReschedule implements app.PostRescheduleHook. Failures are logged and
// never returned.
func (r *Reporter) AfterReschedule(ctx context.Context, rs app.Rescheduled) error {
	log := r.logger.WithField("invoice_id", rs.Invoice.ID)
	if err := r.post(ctx, rs.Invoice); err != nil {
		log.WithError(err).Warn("Failed to report transferred invoice")
		return nil
	}
	log.Debug("Transferred invoice reported")
	return nil
}

func (r *Reporter) post(ctx context.Context, inv billing.Invoice) error {
	body, err := json.Marshal(payload{
		AccountID: r.accountID,
		InvoiceID: inv.ID,
		Amount:    json.Number(billing.FromMinorUnits(inv.AmountDue, inv.Currency).String()),
		Currency:  billing.NormalizeCurrency(inv.Currency),
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set("Authorization", "Bearer "+r.secret)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post transfer log: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("transfer log responded %d", resp.StatusCode)
	}
	return nil
}
