package domain

// ============================================================
// Credit score analysis
// ============================================================

// Score categories derived from the numeric score by fixed thresholds.
const (
	CategoryExcellent = "Excellent"
	CategoryGood      = "Good"
	CategoryFair      = "Fair"
	CategoryPoor      = "Poor"
	CategoryNoData    = "No Data"
)

// CategoryFor maps a 0–100 score to its category label.
func CategoryFor(score float64) string {
	switch {
	case score >= 80:
		return CategoryExcellent
	case score >= 70:
		return CategoryGood
	case score >= 60:
		return CategoryFair
	default:
		return CategoryPoor
	}
}

// FactorScore is one criterion of the weighted score.
type FactorScore struct {
	ActualValue      float64 `json:"actual_value"`
	IndividualScore  float64 `json:"individual_score"`
	WeightedScore    float64 `json:"weighted_score"`
	WeightPercentage float64 `json:"weight_percentage"`
	Comment          string  `json:"comment"`
}

type DetailedAnalysis struct {
	Strengths               []string `json:"strengths"`
	Weaknesses              []string `json:"weaknesses"`
	RiskAssessment          []string `json:"risk_assessment"`
	CreditworthinessSummary []string `json:"creditworthiness_summary"`
}

type Recommendations struct {
	ImmediateActions     []string `json:"immediate_actions"`
	LongTermImprovements []string `json:"long_term_improvements"`
	PriorityFocusAreas   []string `json:"priority_focus_areas"`
}

// CreditScoreAnalysis is the scoring service's weighted breakdown.
type CreditScoreAnalysis struct {
	FinalWeightedCreditScore float64                `json:"final_weighted_credit_score"`
	ScoreCategory            string                 `json:"score_category"`
	FactorBreakdown          map[string]FactorScore `json:"factor_breakdown"`
	DetailedAnalysis         DetailedAnalysis       `json:"detailed_analysis"`
	Recommendations          Recommendations        `json:"recommendations"`
}

// DashboardScore is the cumulative score over all of a user's invoices.
type DashboardScore struct {
	Score         float64         `json:"score"`
	Category      string          `json:"category"`
	TotalInvoices int             `json:"total_invoices"`
	LastUpdated   string          `json:"last_updated"`
	Debug         *DashboardDebug `json:"debug_info,omitempty"`
	EmptyState    string          `json:"empty_state,omitempty"`
}

// DashboardDebug is optional diagnostic data some backends attach.
type DashboardDebug struct {
	IndividualScores []float64 `json:"individual_scores,omitempty"`
	MeanCalculation  string    `json:"mean_calculation,omitempty"`
	InvoiceCount     int       `json:"invoice_count,omitempty"`
}

// IsEmpty reports whether the user has not uploaded any invoice yet.
func (d *DashboardScore) IsEmpty() bool {
	return d.TotalInvoices == 0
}

// EmptyDashboard is what an account without invoices shows.
func EmptyDashboard(lastUpdated string) *DashboardScore {
	return &DashboardScore{
		Score:       0,
		Category:    CategoryNoData,
		LastUpdated: lastUpdated,
	}
}

// ============================================================
// Scoring request
// ============================================================

// Defaults the single-invoice view sends for ratios it cannot know from one
// unpaid invoice.
const (
	DefaultPaymentCompletionRate = 0.7
	DefaultPaidToPendingRatio    = 0.5
)

// FinancialSnapshot is the aggregate record the scoring formula consumes.
// The same formula serves the single-invoice and cumulative views; only the
// aggregate inputs differ.
type FinancialSnapshot struct {
	NoOfInvoices          int     `json:"no_of_invoices"`
	TotalAmount           float64 `json:"total_amount"`
	TotalAmountPending    float64 `json:"total_amount_pending"`
	TotalAmountPaid       float64 `json:"total_amount_paid"`
	Tax                   float64 `json:"tax"`
	ExtraCharges          float64 `json:"extra_charges"`
	PaymentCompletionRate float64 `json:"payment_completion_rate"`
	PaidToPendingRatio    float64 `json:"paid_to_pending_ratio"`
}

// SingleInvoiceSnapshot describes exactly one invoice in isolation: it is
// counted once and is entirely pending.
func SingleInvoiceSnapshot(inv *Invoice) *FinancialSnapshot {
	return &FinancialSnapshot{
		NoOfInvoices:          1,
		TotalAmount:           inv.TotalAmount,
		TotalAmountPending:    inv.TotalAmount,
		TotalAmountPaid:       0,
		Tax:                   inv.TaxAmount,
		ExtraCharges:          inv.ExtraCharges,
		PaymentCompletionRate: DefaultPaymentCompletionRate,
		PaidToPendingRatio:    DefaultPaidToPendingRatio,
	}
}
