package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/progress"
	"github.com/nexora/nexora-bfa-go/internal/service"
	"github.com/nexora/nexora-bfa-go/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// DefaultMaxUploadBytes caps multipart invoice uploads when Services leaves
// MaxUploadBytes unset.
const DefaultMaxUploadBytes = 10 << 20

// HealthCheck probes one dependency. A nil Check reports it as disabled.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Services are the dependencies of the router. Any field may be nil; the
// routes that need a missing service are not mounted.
type Services struct {
	Sessions       *session.Manager
	Auth           *service.AuthService
	Reconciler     *service.ScoreReconciler
	Invoices       *service.InvoiceService
	Loans          *service.LoanService
	Business       *service.BusinessService
	Tracker        *progress.Tracker
	Checks         []HealthCheck
	MaxUploadBytes int64
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svc.MaxUploadBytes <= 0 {
		svc.MaxUploadBytes = DefaultMaxUploadBytes
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(svc.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   svc.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
			ExposedHeaders:   []string{SessionHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Checks))
	r.Get("/readyz", readyzHandler(svc.Checks))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/fixtures", fixtureKindsHandler())
		r.Get("/fixtures/{kind}", fixturesHandler(logger))
		r.Get("/schemas", schemaNamesHandler())
		r.Get("/schemas/{name}", schemaHandler(logger))
		r.Get("/metrics/summary", metricsSummaryHandler(metrics))

		if svc.Reconciler != nil {
			r.Post("/credit-score/single", singleScoreHandler(svc.Reconciler, logger))
		}

		if svc.Sessions == nil {
			return
		}

		// Session-scoped routes.
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(svc.Sessions, logger))

			if svc.Auth != nil {
				r.Post("/auth/login", loginHandler(svc.Auth, logger))
				r.Post("/auth/register", registerHandler(svc.Auth, logger))
				r.Post("/auth/logout", logoutHandler(svc.Auth, logger))
			}
			r.Get("/auth/session", sessionInfoHandler())

			if svc.Reconciler != nil {
				r.Post("/invoices/upload", uploadHandler(svc.Reconciler, svc.MaxUploadBytes, logger))
				r.Get("/credit-score/dashboard", dashboardScoreHandler(svc.Reconciler, logger))
			}
			if svc.Tracker != nil {
				r.Get("/uploads/{uploadId}", uploadStatusHandler(svc.Tracker))
			}
			if svc.Invoices != nil {
				r.Get("/invoices", listInvoicesHandler(svc.Invoices, logger))
				r.Delete("/invoices/{invoiceId}", deleteInvoiceHandler(svc.Invoices, logger))
				r.Get("/dashboard", overviewHandler(svc.Invoices, logger))
			}
			if svc.Business != nil {
				r.Get("/business", getBusinessHandler(svc.Business, logger))
				r.Post("/business", registerBusinessHandler(svc.Business, logger))
				r.Get("/policies", listPoliciesHandler(svc.Business, logger))
				r.Post("/policies/generate", generatePoliciesHandler(svc.Business, logger))
			}
			if svc.Loans != nil {
				r.Route("/loans", func(r chi.Router) {
					r.Get("/", listLoansHandler(svc.Loans, logger))
					r.Get("/escrow", escrowHandler(svc.Loans, logger))
					r.Get("/max-amount", maxLoanAmountHandler(svc.Loans, logger))
					r.Get("/{loanId}", getLoanHandler(svc.Loans, logger))

					r.Group(func(r chi.Router) {
						r.Use(RequireLogin(logger))
						r.Post("/", createLoanHandler(svc.Loans, logger))
						r.Post("/{loanId}/fund", loanActionHandler("fund", svc.Loans.FundLoan, logger))
						r.Post("/{loanId}/repay", loanActionHandler("repay", svc.Loans.RepayLoan, logger))
						r.Post("/{loanId}/default", loanActionHandler("default", svc.Loans.MarkDefault, logger))
					})
				})
			}
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func runChecks(ctx context.Context, checks []HealthCheck) *domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := &domain.HealthStatus{Status: "healthy", Components: []domain.ComponentHealth{}}
	for _, c := range checks {
		comp := domain.ComponentHealth{Name: c.Name, Status: "up"}
		switch {
		case c.Check == nil:
			comp.Status = "disabled"
		default:
			if err := c.Check(ctx); err != nil {
				comp.Status = "down"
				comp.Detail = err.Error()
				status.Status = "degraded"
			}
		}
		status.Components = append(status.Components, comp)
	}
	return status
}

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, runChecks(r.Context(), checks))
	}
}

func readyzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := runChecks(r.Context(), checks)
		if st.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, st)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Summary())
	}
}
