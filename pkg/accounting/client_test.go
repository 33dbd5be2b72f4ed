package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/core"
)

func newTestClient(url string) *Client {
	return NewClient(config.AccountingConfig{
		URL:      url,
		APIToken: "secret",
		Timeout:  2 * time.Second,
	})
}

func TestCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/invoices", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req createInvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "CL00001", req.PartnerRef)
		require.Len(t, req.Lines, 1)
		require.Equal(t, "Standard Subscription - Acme School", req.Lines[0].Description)

		json.NewEncoder(w).Encode(Invoice{
			ID:             "inv-1",
			Number:         "INV/2025/0042",
			State:          "posted",
			PartnerRef:     req.PartnerRef,
			AmountTotal:    decimal.NewFromFloat(49.50),
			AmountResidual: decimal.NewFromFloat(49.50),
		})
	}))
	defer srv.Close()

	inv, err := newTestClient(srv.URL).CreateInvoice(context.Background(), "CL00001", []InvoiceLine{
		{Description: "Standard Subscription - Acme School", Quantity: 1, UnitPrice: decimal.NewFromFloat(49.50)},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/2025/0042", inv.Number)
	assert.True(t, inv.AmountTotal.Equal(decimal.NewFromFloat(49.50)))
}

func TestGetInvoiceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetInvoice(context.Background(), "inv-missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestServerErrorIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ledger locked", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateInvoice(context.Background(), "CL00001", nil)

	var depErr *core.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "accounting", depErr.System)
	assert.Contains(t, depErr.Error(), "503")
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).GetInvoice(context.Background(), "inv-1")

	var depErr *core.DependencyError
	assert.ErrorAs(t, err, &depErr)
}
