package domain

// ScoreScope labels which invoice set a score was computed from.
type ScoreScope string

const (
	// ScopeIndividual is a score computed from one invoice in isolation.
	ScopeIndividual ScoreScope = "individual"
	// ScopeTotal is a score computed from every historical invoice.
	ScopeTotal ScoreScope = "total"
)

// ScopedScore is a score sub-object that always carries its scope, so the
// presentation layer cannot swap the individual and cumulative views.
type ScopedScore struct {
	Scope         ScoreScope           `json:"scope"`
	Score         float64              `json:"score"`
	Category      string               `json:"category"`
	TotalInvoices int                  `json:"total_invoices"`
	LastUpdated   string               `json:"last_updated,omitempty"`
	Analysis      *CreditScoreAnalysis `json:"analysis,omitempty"`
}

// ReconcileStep names one network step of the upload flow.
type ReconcileStep string

const (
	StepExtraction  ReconcileStep = "extraction"
	StepSingleScore ReconcileStep = "single_invoice_score"
	StepDashboard   ReconcileStep = "dashboard_score"
	StepInvoices    ReconcileStep = "invoices"
)

// StepFailure records a step that failed while the rest of the flow went on.
type StepFailure struct {
	Step    ReconcileStep `json:"step"`
	Kind    string        `json:"kind"`
	Message string        `json:"message"`
}

// Reconciliation is the display-ready result of an invoice upload. Any of the
// score fields may be nil when their step failed; Failures says why.
type Reconciliation struct {
	UploadID          string             `json:"upload_id,omitempty"`
	Invoice           *Invoice           `json:"invoice,omitempty"`
	HistoricalSummary *HistoricalSummary `json:"historical_summary,omitempty"`
	TotalLineItems    int                `json:"total_line_items"`
	Duplicate         bool               `json:"duplicate"`
	Individual        *ScopedScore       `json:"individual,omitempty"`
	Total             *ScopedScore       `json:"total,omitempty"`
	Dashboard         *DashboardScore    `json:"dashboard,omitempty"`
	Failures          []StepFailure      `json:"failures,omitempty"`
	Display           *ReconcileDisplay  `json:"display,omitempty"`
}

// ReconcileDisplay holds preformatted strings for the presentation layer.
type ReconcileDisplay struct {
	TotalAmount  string `json:"total_amount"`
	TaxAmount    string `json:"tax_amount"`
	ExtraCharges string `json:"extra_charges"`
	EmptyState   string `json:"empty_state,omitempty"`
}

// Partial reports whether at least one step failed.
func (r *Reconciliation) Partial() bool {
	return len(r.Failures) > 0
}

// DashboardOverview combines the cumulative score with the invoice list.
type DashboardOverview struct {
	Score      *DashboardScore `json:"score,omitempty"`
	Invoices   []Invoice       `json:"invoices"`
	EmptyState string          `json:"empty_state,omitempty"`
	Failures   []StepFailure   `json:"failures,omitempty"`
}

// EmptyStatePrompt is shown when the user has no invoices yet.
const EmptyStatePrompt = "No invoices yet. Upload your first invoice to get a credit score."
