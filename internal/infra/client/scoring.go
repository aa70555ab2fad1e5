package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/wire"
)

// CalculateSingleInvoiceScore scores snap. The endpoint needs no token.
func (c *NexoraClient) CalculateSingleInvoiceScore(ctx context.Context, snap *domain.FinancialSnapshot) (*domain.CreditScoreAnalysis, error) {
	payload := wire.NewScoreRequest(snap)
	if err := wire.ValidateInput(payload); err != nil {
		return nil, err
	}

	r, err := c.jsonRequest(ServiceScoring, http.MethodPost, "/calculate-single-invoice-credit-score", "", payload)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.SingleScoreResponse](ServiceScoring, raw)
	if err != nil {
		return nil, err
	}
	return resp.CreditScoreAnalysis.ToDomain(), nil
}

// GetDashboardScore fetches the mean score over all of the user's invoices.
// The backend reports its own failures in-band with status 200.
func (c *NexoraClient) GetDashboardScore(ctx context.Context, token string) (*domain.DashboardScore, error) {
	r, err := c.jsonRequest(ServiceDashboard, http.MethodGet, "/dashboard/credit-score", token, nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}

	if detail := inBandError(raw); detail != "" {
		c.metrics.IncrRemoteError(ServiceDashboard, "remote")
		return nil, &domain.ErrRemote{Service: ServiceDashboard, Status: http.StatusOK, Detail: detail}
	}

	resp, err := wire.Parse[wire.DashboardResponse](ServiceDashboard, raw)
	if err != nil {
		return nil, err
	}
	return resp.ToDomain(), nil
}

func inBandError(raw []byte) string {
	var envelope struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &envelope); err != nil || envelope.Error == nil {
		return ""
	}
	return strings.TrimSpace(*envelope.Error)
}
