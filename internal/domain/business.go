package domain

// ============================================================
// Business profile & policies
// ============================================================

// BusinessProfile describes the user's business.
type BusinessProfile struct {
	BusinessName    string  `json:"business_name" validate:"required"`
	Industry        string  `json:"industry,omitempty"`
	Revenue         float64 `json:"revenue,omitempty" validate:"gte=0"`
	Employees       int     `json:"employees,omitempty" validate:"gte=0"`
	Location        string  `json:"location,omitempty"`
	EstablishedYear int     `json:"established_year,omitempty" validate:"omitempty,gte=1800,lte=2100"`
}

// PolicyRequest asks the backend to draft policy documents for a business.
type PolicyRequest struct {
	Business    *BusinessProfile `json:"business_details" validate:"required"`
	PolicyTypes []string         `json:"policy_types" validate:"min=1,dive,required"`
	Language    string           `json:"language,omitempty"`
}

// GeneratedPolicies maps each requested policy type to its document text.
type GeneratedPolicies map[string]string

// Policy is an insurance policy held by the user's business.
type Policy struct {
	ID           string  `json:"id"`
	PolicyName   string  `json:"policy_name"`
	PolicyNumber string  `json:"policy_number"`
	Premium      float64 `json:"premium"`
	Coverage     float64 `json:"coverage"`
	Status       string  `json:"status"`
	RenewalDate  string  `json:"renewal_date,omitempty"`
}
