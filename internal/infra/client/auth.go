package client

import (
	"context"
	"net/http"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/wire"
)

// Login exchanges credentials for a bearer token and user record.
func (c *NexoraClient) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResult, error) {
	return c.authCall(ctx, "/login", "", req)
}

// Register creates an account and returns its bearer token.
func (c *NexoraClient) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error) {
	return c.authCall(ctx, "/register", "", req)
}

// Refresh exchanges a rejected token for a new one.
func (c *NexoraClient) Refresh(ctx context.Context, token string) (*domain.AuthResult, error) {
	return c.authCall(ctx, c.refreshPath, token, nil)
}

func (c *NexoraClient) authCall(ctx context.Context, path, token string, payload any) (*domain.AuthResult, error) {
	r, err := c.jsonRequest(ServiceAuth, http.MethodPost, path, token, payload)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.AuthResponse](ServiceAuth, body)
	if err != nil {
		return nil, err
	}
	return resp.ToDomain(), nil
}
