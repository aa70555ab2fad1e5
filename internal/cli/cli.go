// Package cli implements nexoractl, the operator command line for the
// Nexora client layer. Commands run the same services as the BFF against a
// session persisted in an encrypted local file.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/fixtures"
	"github.com/nexora/nexora-bfa-go/internal/infra/store"
	"github.com/nexora/nexora-bfa-go/internal/service"
	"github.com/nexora/nexora-bfa-go/internal/session"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Env is what the commands run against.
type Env struct {
	Session    *session.Session
	Auth       *service.AuthService
	Reconciler *service.ScoreReconciler
	Invoices   *service.InvoiceService
	Business   *service.BusinessService
	// Loans is nil when no contract is configured.
	Loans *service.LoanService
	Close func()
}

// Opener builds an Env on first use.
type Opener func(ctx context.Context) (*Env, error)

type app struct {
	open Opener
	env  *Env
	out  io.Writer
	errw io.Writer
}

func (a *app) environment(ctx context.Context) (*Env, error) {
	if a.env != nil {
		return a.env, nil
	}
	env, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	a.env = env
	return env, nil
}

func (a *app) loans(ctx context.Context) (*service.LoanService, error) {
	env, err := a.environment(ctx)
	if err != nil {
		return nil, err
	}
	if env.Loans == nil {
		return nil, &domain.ErrUnavailable{Component: "loan contract (set ETH_RPC_URL and LOAN_CONTRACT_ADDRESS)"}
	}
	return env.Loans, nil
}

// loanWriter is loans for commands that send transactions, which need a
// logged-in session.
func (a *app) loanWriter(ctx context.Context, op string) (*service.LoanService, error) {
	svc, err := a.loans(ctx)
	if err != nil {
		return nil, err
	}
	if a.env.Session == nil {
		return nil, &domain.ErrNoSession{Operation: op}
	}
	if _, err := a.env.Session.Token(op); err != nil {
		return nil, err
	}
	return svc, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs nexoractl with args and returns the process exit code.
func Execute(ctx context.Context, args []string, open Opener, out, errw io.Writer) int {
	a := &app{open: open, out: out, errw: errw}
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.env != nil && a.env.Close != nil {
		a.env.Close()
	}
	if err != nil {
		fmt.Fprintln(errw, "Error: "+domain.UserMessage(err))
	}
	return ExitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nexoractl",
		Short: "Operate the Nexora MSME client layer from the command line",
		Long: `nexoractl logs in to the Nexora backend, uploads invoices and shows the
resulting credit scores, manages stored invoices and drives the P2P lending
contract. The session is kept in an encrypted file (SESSION_FILE, keyed by
SESSION_ENCRYPTION_KEY).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errw)

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.uploadCmd(),
		a.scoreCmd(),
		a.invoicesCmd(),
		a.businessCmd(),
		a.policiesCmd(),
		a.loansCmd(),
		a.schemaCmd(),
		a.fixturesCmd(),
		a.keygenCmd(),
	)
	return root
}

// ============================================================
// Session
// ============================================================

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Example: `  nexoractl login --email owner@acme.in --password secret
  NEXORA_PASSWORD=secret nexoractl login --email owner@acme.in`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv("NEXORA_PASSWORD")
			}
			info, err := env.Auth.Login(cmd.Context(), env.Session, &domain.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			if info.User != nil {
				email = info.User.Email
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $NEXORA_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var req domain.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			if req.Password == "" {
				req.Password = os.Getenv("NEXORA_PASSWORD")
			}
			if _, err := env.Auth.Register(cmd.Context(), env.Session, &req); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered and logged in as %s\n", req.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password (default $NEXORA_PASSWORD)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.Auth.Logout(cmd.Context(), env.Session); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(env.Session.Info())
		},
	}
}

// ============================================================
// Invoices & scores
// ============================================================

// progressPrinter writes upload progress and step results to w.
type progressPrinter struct {
	w    io.Writer
	last int
}

func (p *progressPrinter) OnProgress(pr domain.Progress) {
	pct := int(pr.Percent())
	if pct/10 == p.last/10 && pct != 100 {
		return
	}
	p.last = pct
	fmt.Fprintf(p.w, "uploading... %3d%%\n", pct)
}

func (p *progressPrinter) OnStep(step domain.ReconcileStep, err error) {
	if err != nil {
		fmt.Fprintf(p.w, "%s: failed (%s)\n", step, domain.UserMessage(err))
		return
	}
	fmt.Fprintf(p.w, "%s: done\n", step)
}

func (a *app) uploadCmd() *cobra.Command {
	var (
		field  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "upload <file>",
		Short:   "Upload an invoice and show the resulting credit scores",
		Example: `  nexoractl upload invoice.pdf
  nexoractl upload receipt.jpg --field image`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open invoice: %w", err)
			}
			defer f.Close()

			doc := &domain.Document{Name: filepath.Base(args[0]), Field: field, Content: f}
			rec, err := env.Reconciler.UploadAndReconcile(cmd.Context(), env.Session, "", doc, &progressPrinter{w: a.errw, last: -10})
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(rec)
			}
			fmt.Fprintln(a.out, ScoreCard(rec))
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "file", "multipart field name: file or image")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	return cmd
}

func (a *app) scoreCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Show the cumulative credit score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			score, err := env.Reconciler.FetchDashboardScore(cmd.Context(), env.Session)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(score)
			}
			fmt.Fprintln(a.out, DashboardCard(score))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw score as JSON")
	return cmd
}

func (a *app) invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List or delete stored invoices",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List invoices, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := a.environment(cmd.Context())
				if err != nil {
					return err
				}
				list, err := env.Invoices.List(cmd.Context(), env.Session)
				if err != nil {
					return err
				}
				return a.printJSON(list)
			},
		},
		&cobra.Command{
			Use:   "delete <invoice-id>",
			Short: "Delete an invoice",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := a.environment(cmd.Context())
				if err != nil {
					return err
				}
				if err := env.Invoices.Delete(cmd.Context(), env.Session, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted invoice %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

// ============================================================
// Business & policies
// ============================================================

func (a *app) business(ctx context.Context) (*Env, error) {
	env, err := a.environment(ctx)
	if err != nil {
		return nil, err
	}
	if env.Business == nil {
		return nil, &domain.ErrUnavailable{Component: "business service"}
	}
	return env, nil
}

func (a *app) businessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "business",
		Short: "Show or register the business profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.business(cmd.Context())
			if err != nil {
				return err
			}
			p, err := env.Business.Profile(cmd.Context(), env.Session)
			if err != nil {
				return err
			}
			return a.printJSON(p)
		},
	}

	var profile domain.BusinessProfile
	register := &cobra.Command{
		Use:     "register",
		Short:   "Save the business profile",
		Example: `  nexoractl business register --name "Acme Traders" --industry Retail --employees 12`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.business(cmd.Context())
			if err != nil {
				return err
			}
			p, err := env.Business.Register(cmd.Context(), env.Session, &profile)
			if err != nil {
				return err
			}
			return a.printJSON(p)
		},
	}
	register.Flags().StringVar(&profile.BusinessName, "name", "", "business name")
	register.Flags().StringVar(&profile.Industry, "industry", "", "industry")
	register.Flags().Float64Var(&profile.Revenue, "revenue", 0, "annual revenue in INR")
	register.Flags().IntVar(&profile.Employees, "employees", 0, "number of employees")
	register.Flags().StringVar(&profile.Location, "location", "", "city and country")
	register.Flags().IntVar(&profile.EstablishedYear, "established", 0, "year the business was established")
	_ = register.MarkFlagRequired("name")

	cmd.AddCommand(register)
	return cmd
}

func (a *app) policiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List insurance policies or draft policy documents",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the business's insurance policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.business(cmd.Context())
			if err != nil {
				return err
			}
			policies, err := env.Business.Policies(cmd.Context(), env.Session)
			if err != nil {
				return err
			}
			return a.printJSON(policies)
		},
	}

	var (
		types    []string
		language string
	)
	generate := &cobra.Command{
		Use:     "generate",
		Short:   "Draft policy documents for the stored business profile",
		Example: `  nexoractl policies generate --type privacy_policy --type refund_policy`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.business(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := env.Business.Profile(cmd.Context(), env.Session)
			if err != nil {
				return err
			}
			drafts, err := env.Business.GeneratePolicies(cmd.Context(), env.Session, &domain.PolicyRequest{
				Business:    profile,
				PolicyTypes: types,
				Language:    language,
			})
			if err != nil {
				return err
			}
			return a.printJSON(drafts)
		},
	}
	generate.Flags().StringSliceVar(&types, "type", nil, "policy type to draft, repeatable")
	generate.Flags().StringVar(&language, "language", "en", "document language")
	_ = generate.MarkFlagRequired("type")

	cmd.AddCommand(list, generate)
	return cmd
}

// ============================================================
// Loans
// ============================================================

func parseLoanID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &domain.ErrValidation{Field: "loan_id", Message: "must be a non-negative integer"}
	}
	return id, nil
}

func (a *app) loanTxCmd(use, short string, run func(svc *service.LoanService) func(context.Context, uint64) (*domain.TxResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <loan-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLoanID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.loanWriter(cmd.Context(), "loans "+use)
			if err != nil {
				return err
			}
			res, err := run(svc)(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
}

func (a *app) loansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Read and drive the P2P lending contract",
	}

	var (
		amount string
		rate   uint64
		days   int
	)
	create := &cobra.Command{
		Use:     "create",
		Short:   "Open a loan request",
		Example: `  nexoractl loans create --amount 2.5 --rate 12 --days 90`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return &domain.ErrValidation{Field: "amount_eth", Message: "must be a decimal number"}
			}
			in := &domain.CreateLoanInput{AmountEth: amt, InterestRate: rate, DurationDays: days}
			if err := service.ValidateCreate(in); err != nil {
				return err
			}
			svc, err := a.loanWriter(cmd.Context(), "loans create")
			if err != nil {
				return err
			}
			res, err := svc.CreateLoan(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	create.Flags().StringVar(&amount, "amount", "", "amount in ETH, up to 100")
	create.Flags().Uint64Var(&rate, "rate", 0, "interest rate in percent, 1 to 50")
	create.Flags().IntVar(&days, "days", 0, "duration in days, 1 to 365")
	_ = create.MarkFlagRequired("amount")

	get := &cobra.Command{
		Use:   "get <loan-id>",
		Short: "Show one loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLoanID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.loans(cmd.Context())
			if err != nil {
				return err
			}
			loan, err := svc.GetLoan(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printJSON(loan)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every loan on the contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.loans(cmd.Context())
			if err != nil {
				return err
			}
			loans, err := svc.ListLoans(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(loans)
		},
	}

	escrow := &cobra.Command{
		Use:   "escrow",
		Short: "Show the contract escrow balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.loans(cmd.Context())
			if err != nil {
				return err
			}
			bal, err := svc.EscrowBalance(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(bal)
		},
	}

	maxAmount := &cobra.Command{
		Use:   "max-amount <credit-score>",
		Short: "Show the borrowing ceiling for a credit score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return &domain.ErrValidation{Field: "credit_score", Message: "must be an integer"}
			}
			svc, err := a.loans(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.MaxLoanAmount(cmd.Context(), score)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}

	cmd.AddCommand(
		create, get, list, escrow, maxAmount,
		a.loanTxCmd("fund", "Fund a loan with its full amount", func(s *service.LoanService) func(context.Context, uint64) (*domain.TxResult, error) {
			return s.FundLoan
		}),
		a.loanTxCmd("repay", "Repay a loan with principal and interest", func(s *service.LoanService) func(context.Context, uint64) (*domain.TxResult, error) {
			return s.RepayLoan
		}),
		a.loanTxCmd("default", "Mark an overdue loan as defaulted", func(s *service.LoanService) func(context.Context, uint64) (*domain.TxResult, error) {
			return s.MarkDefault
		}),
	)
	return cmd
}

// ============================================================
// Offline commands
// ============================================================

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [name]",
		Short: "Print the JSON Schema of a backend payload, or list them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, n := range wire.SchemaNames() {
					fmt.Fprintln(a.out, n)
				}
				return nil
			}
			s, ok := wire.Schema(args[0])
			if !ok {
				return &domain.ErrNotFound{Resource: "schema", ID: args[0]}
			}
			return a.printJSON(s)
		},
	}
}

func (a *app) fixturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "fixtures <kind>",
		Short:     "Print sample data",
		ValidArgs: fixtures.Kinds(),
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, ok := fixtures.Get(args[0])
			if !ok {
				return &domain.ErrNotFound{Resource: "fixture", ID: args[0]}
			}
			return a.printJSON(data)
		},
	}
}

func (a *app) keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a SESSION_ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := store.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, key)
			return nil
		},
	}
}

// ExitCode maps an error to a process exit code: 2 for bad input, 3 for
// missing or rejected credentials, 1 otherwise.
func ExitCode(err error) int {
	var (
		validation   *domain.ErrValidation
		noSession    *domain.ErrNoSession
		unauthorized *domain.ErrUnauthorized
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &validation):
		return 2
	case errors.As(err, &noSession), errors.As(err, &unauthorized):
		return 3
	default:
		return 1
	}
}
