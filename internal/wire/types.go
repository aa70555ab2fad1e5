// Package wire holds the payload shapes exchanged with the Nexora backend and
// validates them before they reach the domain layer.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
)

// ID accepts both JSON numbers and strings; the backend uses integer keys.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// StringList accepts a list of strings or a single string. Some scoring
// backends send risk_assessment as prose.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*l = nil
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = items
	return nil
}

// ============================================================
// Invoices
// ============================================================

type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"gte=0"`
}

type Invoice struct {
	ID            ID         `json:"id,omitempty"`
	InvoiceNumber string     `json:"invoice_number" validate:"required"`
	Client        string     `json:"client"`
	Date          string     `json:"date,omitempty"`
	TotalAmount   float64    `json:"total_amount" validate:"gte=0"`
	Currency      string     `json:"currency,omitempty"`
	PaymentTerms  string     `json:"payment_terms,omitempty"`
	Industry      string     `json:"industry,omitempty"`
	TaxAmount     float64    `json:"tax_amount" validate:"gte=0"`
	ExtraCharges  float64    `json:"extra_charges" validate:"gte=0"`
	LineItems     []LineItem `json:"line_items,omitempty" validate:"dive"`
	Status        string     `json:"status,omitempty" validate:"omitempty,oneof=paid pending overdue processed"`
	CreditScore   *float64   `json:"credit_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	CreatedAt     string     `json:"created_at,omitempty"`
}

// ToDomain converts the wire invoice. Currency defaults to INR.
func (inv *Invoice) ToDomain() *domain.Invoice {
	out := &domain.Invoice{
		ID:            string(inv.ID),
		InvoiceNumber: inv.InvoiceNumber,
		Client:        inv.Client,
		Date:          inv.Date,
		TotalAmount:   inv.TotalAmount,
		Currency:      inv.Currency,
		PaymentTerms:  inv.PaymentTerms,
		Industry:      inv.Industry,
		TaxAmount:     inv.TaxAmount,
		ExtraCharges:  inv.ExtraCharges,
		Status:        domain.InvoiceStatus(inv.Status),
		CreditScore:   inv.CreditScore,
		LineItems:     make([]domain.LineItem, 0, len(inv.LineItems)),
	}
	if out.Currency == "" {
		out.Currency = "INR"
	}
	for _, li := range inv.LineItems {
		out.LineItems = append(out.LineItems, domain.LineItem{Description: li.Description, Amount: li.Amount})
	}
	if inv.CreatedAt != "" {
		if t, err := parseTimestamp(inv.CreatedAt); err == nil {
			out.CreatedAt = &t
		}
	}
	return out
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type HistoricalSummary struct {
	TotalHistoricalInvoices int     `json:"total_historical_invoices" validate:"gte=0"`
	TotalAmountAllInvoices  float64 `json:"total_amount_all_invoices" validate:"gte=0"`
}

// ProcessInvoiceResponse is the body of POST /process-invoice.
// credit_score_analysis stays raw: the backend sends {} when scoring failed,
// and a bad analysis must not discard a good extraction.
type ProcessInvoiceResponse struct {
	Success             bool               `json:"success"`
	Message             string             `json:"message,omitempty"`
	InvoiceDetails      *Invoice           `json:"invoice_details" validate:"required"`
	CreditScoreAnalysis json.RawMessage    `json:"credit_score_analysis,omitempty"`
	HistoricalSummary   *HistoricalSummary `json:"historical_summary,omitempty"`
	TotalLineItems      int                `json:"total_line_items" validate:"gte=0"`
	Duplicate           bool               `json:"duplicate"`
}

type InvoiceListResponse struct {
	Success    bool      `json:"success"`
	Invoices   []Invoice `json:"invoices" validate:"dive"`
	TotalCount int       `json:"total_count"`
}

// ============================================================
// Credit score
// ============================================================

type FactorScore struct {
	ActualValue      float64 `json:"actual_value"`
	IndividualScore  float64 `json:"individual_score" validate:"gte=0,lte=100"`
	WeightedScore    float64 `json:"weighted_score"`
	WeightPercentage float64 `json:"weight_percentage" validate:"gte=0,lte=100"`
	Comment          string  `json:"comment"`
}

type DetailedAnalysis struct {
	Strengths               StringList `json:"strengths"`
	Weaknesses              StringList `json:"weaknesses"`
	RiskAssessment          StringList `json:"risk_assessment"`
	CreditworthinessSummary StringList `json:"creditworthiness_summary"`
}

type Recommendations struct {
	ImmediateActions     StringList `json:"immediate_actions"`
	LongTermImprovements StringList `json:"long_term_improvements"`
	PriorityFocusAreas   StringList `json:"priority_focus_areas"`
}

type CreditScoreAnalysis struct {
	FinalWeightedCreditScore *float64               `json:"final_weighted_credit_score" validate:"required,gte=0,lte=100"`
	ScoreCategory            string                 `json:"score_category"`
	FactorBreakdown          map[string]FactorScore `json:"factor_breakdown" validate:"dive"`
	DetailedAnalysis         DetailedAnalysis       `json:"detailed_analysis"`
	Recommendations          Recommendations        `json:"recommendations"`
}

// ToDomain converts the analysis, deriving the category when the backend
// left it empty.
func (a *CreditScoreAnalysis) ToDomain() *domain.CreditScoreAnalysis {
	score := *a.FinalWeightedCreditScore
	out := &domain.CreditScoreAnalysis{
		FinalWeightedCreditScore: score,
		ScoreCategory:            a.ScoreCategory,
		FactorBreakdown:          make(map[string]domain.FactorScore, len(a.FactorBreakdown)),
		DetailedAnalysis: domain.DetailedAnalysis{
			Strengths:               nonNil(a.DetailedAnalysis.Strengths),
			Weaknesses:              nonNil(a.DetailedAnalysis.Weaknesses),
			RiskAssessment:          nonNil(a.DetailedAnalysis.RiskAssessment),
			CreditworthinessSummary: nonNil(a.DetailedAnalysis.CreditworthinessSummary),
		},
		Recommendations: domain.Recommendations{
			ImmediateActions:     nonNil(a.Recommendations.ImmediateActions),
			LongTermImprovements: nonNil(a.Recommendations.LongTermImprovements),
			PriorityFocusAreas:   nonNil(a.Recommendations.PriorityFocusAreas),
		},
	}
	if out.ScoreCategory == "" {
		out.ScoreCategory = domain.CategoryFor(score)
	}
	for name, f := range a.FactorBreakdown {
		out.FactorBreakdown[name] = domain.FactorScore(f)
	}
	return out
}

func nonNil(l StringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

// SingleScoreResponse is the body of POST /calculate-single-invoice-credit-score.
type SingleScoreResponse struct {
	CreditScoreAnalysis *CreditScoreAnalysis `json:"credit_score_analysis" validate:"required"`
}

// ScoreRequest is the aggregate snapshot posted for scoring.
type ScoreRequest struct {
	NoOfInvoices          int     `json:"no_of_invoices" validate:"gte=1"`
	TotalAmount           float64 `json:"total_amount" validate:"gte=0"`
	TotalAmountPending    float64 `json:"total_amount_pending" validate:"gte=0"`
	TotalAmountPaid       float64 `json:"total_amount_paid" validate:"gte=0"`
	Tax                   float64 `json:"tax" validate:"gte=0"`
	ExtraCharges          float64 `json:"extra_charges" validate:"gte=0"`
	PaymentCompletionRate float64 `json:"payment_completion_rate" validate:"gte=0,lte=1"`
	PaidToPendingRatio    float64 `json:"paid_to_pending_ratio" validate:"gte=0"`
}

// NewScoreRequest builds the request body from a domain snapshot.
func NewScoreRequest(s *domain.FinancialSnapshot) *ScoreRequest {
	r := ScoreRequest(*s)
	return &r
}

type DashboardDebug struct {
	IndividualScores []float64 `json:"individual_scores,omitempty"`
	MeanCalculation  string    `json:"mean_calculation,omitempty"`
	InvoiceCount     int       `json:"invoice_count,omitempty"`
}

// DashboardResponse is the body of GET /dashboard/credit-score. The backend
// reports its own failures in-band through Error with status 200.
type DashboardResponse struct {
	CreditScore   *float64        `json:"credit_score" validate:"required,gte=0,lte=100"`
	Category      string          `json:"category"`
	TotalInvoices *int            `json:"total_invoices" validate:"required,gte=0"`
	LastUpdated   string          `json:"last_updated"`
	Error         *string         `json:"error,omitempty"`
	DebugInfo     *DashboardDebug `json:"debug_info,omitempty"`
}

// ToDomain converts the dashboard score. Empty histories always read as
// "No Data" regardless of what category the backend sent.
func (d *DashboardResponse) ToDomain() *domain.DashboardScore {
	out := &domain.DashboardScore{
		Score:         *d.CreditScore,
		Category:      d.Category,
		TotalInvoices: *d.TotalInvoices,
		LastUpdated:   d.LastUpdated,
	}
	if d.DebugInfo != nil {
		dbg := domain.DashboardDebug(*d.DebugInfo)
		out.Debug = &dbg
	}
	switch {
	case out.TotalInvoices == 0:
		out.Score = 0
		out.Category = domain.CategoryNoData
	case out.Category == "":
		out.Category = domain.CategoryFor(out.Score)
	}
	return out
}

// ============================================================
// Business & policies
// ============================================================

type BusinessProfile struct {
	BusinessName    string  `json:"business_name" validate:"required"`
	Industry        string  `json:"industry,omitempty"`
	Revenue         float64 `json:"revenue,omitempty" validate:"gte=0"`
	Employees       int     `json:"employees,omitempty" validate:"gte=0"`
	Location        string  `json:"location,omitempty"`
	EstablishedYear int     `json:"established_year,omitempty"`
}

func (b *BusinessProfile) ToDomain() *domain.BusinessProfile {
	p := domain.BusinessProfile(*b)
	return &p
}

// BusinessResponse is the body of GET /get-business and POST /register-business.
type BusinessResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Business *BusinessProfile `json:"business" validate:"required"`
}

// GeneratePoliciesRequest is the body of POST /generate-policies.
type GeneratePoliciesRequest struct {
	BusinessDetails *BusinessProfile `json:"business_details"`
	PolicyTypes     []string         `json:"policy_types"`
	Language        string           `json:"language"`
}

// NewGeneratePoliciesRequest builds the request body. Language defaults to en.
func NewGeneratePoliciesRequest(r *domain.PolicyRequest) *GeneratePoliciesRequest {
	b := BusinessProfile(*r.Business)
	out := &GeneratePoliciesRequest{BusinessDetails: &b, PolicyTypes: r.PolicyTypes, Language: r.Language}
	if out.Language == "" {
		out.Language = "en"
	}
	return out
}

type GeneratePoliciesResponse struct {
	Success  bool              `json:"success"`
	Policies map[string]string `json:"policies" validate:"required"`
}

type Policy struct {
	ID           ID      `json:"id"`
	PolicyName   string  `json:"policy_name" validate:"required"`
	PolicyNumber string  `json:"policy_number"`
	Premium      float64 `json:"premium" validate:"gte=0"`
	Coverage     float64 `json:"coverage" validate:"gte=0"`
	Status       string  `json:"status"`
	RenewalDate  string  `json:"renewal_date,omitempty"`
}

func (p *Policy) ToDomain() domain.Policy {
	return domain.Policy{
		ID:           string(p.ID),
		PolicyName:   p.PolicyName,
		PolicyNumber: p.PolicyNumber,
		Premium:      p.Premium,
		Coverage:     p.Coverage,
		Status:       p.Status,
		RenewalDate:  p.RenewalDate,
	}
}

// PolicyListResponse is the body of GET /get-policies.
type PolicyListResponse struct {
	Success  bool     `json:"success"`
	Policies []Policy `json:"policies" validate:"dive"`
}

// ============================================================
// Auth
// ============================================================

type User struct {
	ID       ID     `json:"id"`
	Email    string `json:"email" validate:"omitempty,email"`
	FullName string `json:"full_name,omitempty"`
}

// AuthResponse covers login, register and refresh. Backends disagree on
// naming, so both spellings are accepted.
type AuthResponse struct {
	AccessToken string `json:"access_token" validate:"required_without=Token"`
	Token       string `json:"token" validate:"required_without=AccessToken"`
	TokenType   string `json:"token_type,omitempty"`
	UserData    *User  `json:"user_data,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// ToDomain picks whichever token and user field the backend populated.
func (a *AuthResponse) ToDomain() *domain.AuthResult {
	out := &domain.AuthResult{Token: a.AccessToken}
	if out.Token == "" {
		out.Token = a.Token
	}
	u := a.UserData
	if u == nil {
		u = a.User
	}
	if u != nil {
		out.User = &domain.User{ID: string(u.ID), Email: u.Email, FullName: u.FullName}
	}
	return out
}

// ErrorBody is the error envelope FastAPI-style backends return.
type ErrorBody struct {
	Detail  json.RawMessage `json:"detail,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Text returns the most specific human-readable message in the body.
func (e *ErrorBody) Text() string {
	if len(e.Detail) > 0 && !bytes.Equal(e.Detail, []byte("null")) {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		// Validation errors arrive as a list of objects.
		return string(e.Detail)
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
