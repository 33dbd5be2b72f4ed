// Package accounting is a thin HTTP client for the accounting system
// that owns invoices. The fleet controller creates invoices through it
// and mirrors their headline amounts locally.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/core"
)

// Invoice is the accounting system's view of an invoice. Amounts are
// reported in the invoice currency; residual is what remains unpaid.
type Invoice struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	State          string          `json:"state"`
	PartnerRef     string          `json:"partner_ref"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	AmountResidual decimal.Decimal `json:"amount_residual"`
}

type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	PartnerRef string        `json:"partner_ref"`
	Lines      []InvoiceLine `json:"lines"`
}

type Client struct {
	config     config.AccountingConfig
	httpClient *http.Client
}

func NewClient(cfg config.AccountingConfig) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateInvoice posts a draft invoice for the given partner. Any
// transport or non-2xx failure comes back as a DependencyError and
// nothing is created on our side.
func (c *Client) CreateInvoice(ctx context.Context, partnerRef string, lines []InvoiceLine) (*Invoice, error) {
	body, err := json.Marshal(createInvoiceRequest{PartnerRef: partnerRef, Lines: lines})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+"/api/v1/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// GetInvoice fetches the current state and amounts of an invoice,
// typically after payments have been registered against it.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL+"/api/v1/invoices/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Invoice, error) {
	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.DependencyError{System: "accounting", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.DependencyError{
			System: "accounting",
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet),
		}
	}

	var inv Invoice
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return nil, &core.DependencyError{
			System: "accounting",
			Err:    fmt.Errorf("failed to decode invoice response: %w", err),
		}
	}
	return &inv, nil
}
