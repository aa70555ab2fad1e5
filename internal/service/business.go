package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/port"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BusinessService manages the session user's business profile and the
// insurance policies attached to it.
type BusinessService struct {
	directory port.BusinessDirectory
	logger    *zap.Logger
}

// NewBusinessService creates a new business service.
func NewBusinessService(directory port.BusinessDirectory, logger *zap.Logger) *BusinessService {
	return &BusinessService{directory: directory, logger: logger}
}

// Profile returns the stored business profile.
func (s *BusinessService) Profile(ctx context.Context, sess Session) (*domain.BusinessProfile, error) {
	ctx, span := tracer.Start(ctx, "BusinessService.Profile")
	defer span.End()

	var out *domain.BusinessProfile
	err := sess.Do(ctx, "get business", func(ctx context.Context, token string) error {
		p, err := s.directory.GetBusiness(ctx, token)
		out = p
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return out, nil
}

// Register saves profile as the user's business.
func (s *BusinessService) Register(ctx context.Context, sess Session, profile *domain.BusinessProfile) (*domain.BusinessProfile, error) {
	ctx, span := tracer.Start(ctx, "BusinessService.Register")
	defer span.End()

	if profile == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "is required"}
	}
	profile.BusinessName = strings.TrimSpace(profile.BusinessName)
	if err := wire.ValidateInput(profile); err != nil {
		return nil, err
	}

	var out *domain.BusinessProfile
	err := sess.Do(ctx, "register business", func(ctx context.Context, token string) error {
		p, err := s.directory.RegisterBusiness(ctx, token, profile)
		out = p
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("register business: %w", err)
	}
	s.logger.Info("business registered",
		zap.String("session_id", sess.ID()),
		zap.String("business_name", out.BusinessName),
	)
	return out, nil
}

// GeneratePolicies drafts the requested policy documents. Duplicate and blank
// policy types are dropped before the request is sent.
func (s *BusinessService) GeneratePolicies(ctx context.Context, sess Session, req *domain.PolicyRequest) (domain.GeneratedPolicies, error) {
	ctx, span := tracer.Start(ctx, "BusinessService.GeneratePolicies")
	defer span.End()

	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "is required"}
	}
	req.PolicyTypes = uniqueTypes(req.PolicyTypes)
	if err := wire.ValidateInput(req); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.StringSlice("policy.types", req.PolicyTypes))

	var out domain.GeneratedPolicies
	err := sess.Do(ctx, "generate policies", func(ctx context.Context, token string) error {
		p, err := s.directory.GeneratePolicies(ctx, token, req)
		out = p
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate policies: %w", err)
	}
	s.logger.Info("policies generated",
		zap.String("session_id", sess.ID()),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// Policies lists the policies held by the user's business.
func (s *BusinessService) Policies(ctx context.Context, sess Session) ([]domain.Policy, error) {
	ctx, span := tracer.Start(ctx, "BusinessService.Policies")
	defer span.End()

	var out []domain.Policy
	err := sess.Do(ctx, "get policies", func(ctx context.Context, token string) error {
		p, err := s.directory.GetPolicies(ctx, token)
		out = p
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get policies: %w", err)
	}
	if out == nil {
		out = []domain.Policy{}
	}
	return out, nil
}

func uniqueTypes(types []string) []string {
	seen := make(map[string]bool, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
