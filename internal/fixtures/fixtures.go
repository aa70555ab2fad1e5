// Package fixtures serves static sample data for the sections of the
// platform that have no live backend: sample loans, the marketplace, the
// customer directory, insurance recommendations, the learning portal and
// escrow milestones. Every call returns the same data.
package fixtures

import "sort"

// Kinds of fixture data.
const (
	KindLoans      = "loans"
	KindProducts   = "products"
	KindCustomers  = "customers"
	KindInsurance  = "insurance"
	KindLearning   = "learning"
	KindMilestones = "milestones"
)

type SampleLoan struct {
	ID           string  `json:"id"`
	Borrower     string  `json:"borrower"`
	Purpose      string  `json:"purpose"`
	AmountEth    float64 `json:"amount_eth"`
	InterestRate int     `json:"interest_rate"`
	DurationDays int     `json:"duration_days"`
	CreditScore  int     `json:"credit_score"`
	Status       string  `json:"status"`
}

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Seller   string  `json:"seller"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Rating   float64 `json:"rating"`
	InStock  bool    `json:"in_stock"`
}

type Customer struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	City         string  `json:"city"`
	Industry     string  `json:"industry"`
	Outstanding  float64 `json:"outstanding"`
	InvoiceCount int     `json:"invoice_count"`
}

type InsuranceRecommendation struct {
	PolicyName          string   `json:"policy_name"`
	PolicyType          string   `json:"policy_type"`
	ProviderName        string   `json:"provider_name"`
	CoverageDescription string   `json:"coverage_description"`
	RecommendedCoverage float64  `json:"recommended_coverage"`
	EstimatedPremium    float64  `json:"estimated_premium"`
	ComplianceAuthority string   `json:"compliance_authority"`
	ApprovalNumber      string   `json:"irdai_approval_number"`
	Features            []string `json:"features"`
}

type LearningModule struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Level    string   `json:"level"`
	Minutes  int      `json:"duration_minutes"`
	Lessons  int      `json:"lessons"`
	Topics   []string `json:"topics"`
	Featured bool     `json:"featured"`
}

// Milestone is a stage of escrow fund release with its share of the loan.
type Milestone struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

var registry = map[string]func() any{
	KindLoans:      func() any { return Loans() },
	KindProducts:   func() any { return Products() },
	KindCustomers:  func() any { return Customers() },
	KindInsurance:  func() any { return Insurance() },
	KindLearning:   func() any { return Learning() },
	KindMilestones: func() any { return Milestones() },
}

// Kinds lists the available fixture kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns a fresh copy of the fixture data of kind.
func Get(kind string) (any, bool) {
	fn, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func Loans() []SampleLoan {
	return []SampleLoan{
		{ID: "LN-1001", Borrower: "Sharma Traders", Purpose: "Working capital for festive inventory", AmountEth: 2.5, InterestRate: 12, DurationDays: 90, CreditScore: 742, Status: "open"},
		{ID: "LN-1002", Borrower: "Kaveri Textiles", Purpose: "Loom upgrade", AmountEth: 8, InterestRate: 10, DurationDays: 180, CreditScore: 781, Status: "funded"},
		{ID: "LN-1003", Borrower: "Patel Agro Foods", Purpose: "Cold storage expansion", AmountEth: 15, InterestRate: 14, DurationDays: 365, CreditScore: 698, Status: "open"},
		{ID: "LN-1004", Borrower: "Bright Print Studio", Purpose: "Digital press lease", AmountEth: 1.2, InterestRate: 9, DurationDays: 60, CreditScore: 805, Status: "repaid"},
		{ID: "LN-1005", Borrower: "Gupta Hardware", Purpose: "Supplier prepayment", AmountEth: 4, InterestRate: 18, DurationDays: 45, CreditScore: 612, Status: "defaulted"},
	}
}

func Products() []Product {
	return []Product{
		{ID: "PRD-01", Name: "Handloom Cotton Saree", Seller: "Kaveri Textiles", Category: "Apparel", Price: 2450, Currency: "INR", Rating: 4.6, InStock: true},
		{ID: "PRD-02", Name: "Organic Turmeric Powder 1kg", Seller: "Patel Agro Foods", Category: "Food", Price: 380, Currency: "INR", Rating: 4.4, InStock: true},
		{ID: "PRD-03", Name: "Brass Diya Set", Seller: "Moradabad Crafts", Category: "Home Decor", Price: 1299, Currency: "INR", Rating: 4.8, InStock: false},
		{ID: "PRD-04", Name: "Business Card Printing (500)", Seller: "Bright Print Studio", Category: "Services", Price: 650, Currency: "INR", Rating: 4.2, InStock: true},
		{ID: "PRD-05", Name: "Stainless Steel Tool Kit", Seller: "Gupta Hardware", Category: "Tools", Price: 3150, Currency: "INR", Rating: 4.1, InStock: true},
	}
}

func Customers() []Customer {
	return []Customer{
		{ID: "CUS-01", Name: "Mehta Distributors", City: "Ahmedabad", Industry: "Wholesale", Outstanding: 182000, InvoiceCount: 14},
		{ID: "CUS-02", Name: "Sunrise Hotels", City: "Jaipur", Industry: "Hospitality", Outstanding: 56500, InvoiceCount: 6},
		{ID: "CUS-03", Name: "Nair Logistics", City: "Kochi", Industry: "Transport", Outstanding: 0, InvoiceCount: 9},
		{ID: "CUS-04", Name: "Verma Construction", City: "Lucknow", Industry: "Construction", Outstanding: 421000, InvoiceCount: 21},
	}
}

func Insurance() []InsuranceRecommendation {
	return []InsuranceRecommendation{
		{
			PolicyName: "Professional Indemnity Insurance", PolicyType: "professional_indemnity", ProviderName: "HDFC ERGO",
			CoverageDescription: "Protection against professional errors, omissions, and negligence claims",
			RecommendedCoverage: 500000, EstimatedPremium: 15000, ComplianceAuthority: "IRDAI", ApprovalNumber: "IRDAI/PI/2024/001",
			Features: []string{"errors_omissions", "legal_costs", "defense_costs"},
		},
		{
			PolicyName: "Cyber Liability Insurance", PolicyType: "cyber_liability", ProviderName: "ICICI Lombard",
			CoverageDescription: "Comprehensive protection against cyber attacks, data breaches, and digital fraud",
			RecommendedCoverage: 1000000, EstimatedPremium: 25000, ComplianceAuthority: "IRDAI", ApprovalNumber: "IRDAI/CY/2024/002",
			Features: []string{"data_breach", "cyber_extortion", "business_interruption", "forensic_costs"},
		},
		{
			PolicyName: "Public Liability Insurance", PolicyType: "public_liability", ProviderName: "New India Assurance",
			CoverageDescription: "Coverage for third-party bodily injury and property damage claims",
			RecommendedCoverage: 200000, EstimatedPremium: 12000, ComplianceAuthority: "IRDAI", ApprovalNumber: "IRDAI/PL/2024/003",
			Features: []string{"third_party_injury", "property_damage", "legal_expenses"},
		},
		{
			PolicyName: "Fire & Theft Insurance", PolicyType: "asset_protection", ProviderName: "Oriental Insurance",
			CoverageDescription: "Protection against fire, theft, and burglary of business assets",
			RecommendedCoverage: 300000, EstimatedPremium: 10000, ComplianceAuthority: "IRDAI", ApprovalNumber: "IRDAI/FT/2024/007",
			Features: []string{"fire_damage", "theft_burglary", "vandalism"},
		},
		{
			PolicyName: "Employee Health Insurance", PolicyType: "health", ProviderName: "Star Health",
			CoverageDescription: "Comprehensive health coverage for employees and their families",
			RecommendedCoverage: 100000, EstimatedPremium: 8000, ComplianceAuthority: "IRDAI", ApprovalNumber: "IRDAI/HI/2024/006",
			Features: []string{"cashless_treatment", "pre_existing_diseases", "maternity_cover"},
		},
	}
}

func Learning() []LearningModule {
	return []LearningModule{
		{ID: "LM-01", Title: "Understanding Your Credit Score", Level: "beginner", Minutes: 25, Lessons: 5, Topics: []string{"score factors", "payment history", "improving your score"}, Featured: true},
		{ID: "LM-02", Title: "GST Invoicing Essentials", Level: "beginner", Minutes: 40, Lessons: 7, Topics: []string{"tax invoices", "input credit", "e-invoicing"}},
		{ID: "LM-03", Title: "Managing Working Capital", Level: "intermediate", Minutes: 55, Lessons: 8, Topics: []string{"receivables", "payables", "cash cycle"}},
		{ID: "LM-04", Title: "Peer-to-Peer Lending on the Blockchain", Level: "intermediate", Minutes: 35, Lessons: 6, Topics: []string{"wallets", "escrow", "repayment"}, Featured: true},
		{ID: "LM-05", Title: "Insuring a Small Business", Level: "advanced", Minutes: 30, Lessons: 4, Topics: []string{"liability", "asset cover", "claims"}},
	}
}

// Milestones are the escrow release stages; percentages sum to 100.
func Milestones() []Milestone {
	return []Milestone{
		{Name: "Loan agreement signed", Percentage: 20},
		{Name: "Purchase order verified", Percentage: 30},
		{Name: "Goods delivered", Percentage: 30},
		{Name: "Final inspection", Percentage: 20},
	}
}
