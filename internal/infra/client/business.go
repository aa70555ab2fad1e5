package client

import (
	"context"
	"net/http"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/wire"
)

// GetBusiness fetches the user's business profile.
func (c *NexoraClient) GetBusiness(ctx context.Context, token string) (*domain.BusinessProfile, error) {
	return c.businessCall(ctx, http.MethodGet, "/get-business", token, nil)
}

// RegisterBusiness stores profile as the user's business and returns what the
// backend recorded.
func (c *NexoraClient) RegisterBusiness(ctx context.Context, token string, profile *domain.BusinessProfile) (*domain.BusinessProfile, error) {
	if err := wire.ValidateInput(profile); err != nil {
		return nil, err
	}
	payload := wire.BusinessProfile(*profile)
	return c.businessCall(ctx, http.MethodPost, "/register-business", token, &payload)
}

func (c *NexoraClient) businessCall(ctx context.Context, method, path, token string, payload any) (*domain.BusinessProfile, error) {
	r, err := c.jsonRequest(ServiceBusiness, method, path, token, payload)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.BusinessResponse](ServiceBusiness, raw)
	if err != nil {
		return nil, err
	}
	return resp.Business.ToDomain(), nil
}

// GeneratePolicies drafts one document per requested policy type.
func (c *NexoraClient) GeneratePolicies(ctx context.Context, token string, req *domain.PolicyRequest) (domain.GeneratedPolicies, error) {
	if err := wire.ValidateInput(req); err != nil {
		return nil, err
	}
	r, err := c.jsonRequest(ServicePolicies, http.MethodPost, "/generate-policies", token, wire.NewGeneratePoliciesRequest(req))
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.GeneratePoliciesResponse](ServicePolicies, raw)
	if err != nil {
		return nil, err
	}
	return domain.GeneratedPolicies(resp.Policies), nil
}

// GetPolicies lists the insurance policies held by the user's business.
func (c *NexoraClient) GetPolicies(ctx context.Context, token string) ([]domain.Policy, error) {
	r, err := c.jsonRequest(ServicePolicies, http.MethodGet, "/get-policies", token, nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.PolicyListResponse](ServicePolicies, raw)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Policy, 0, len(resp.Policies))
	for i := range resp.Policies {
		out = append(out, resp.Policies[i].ToDomain())
	}
	return out, nil
}
