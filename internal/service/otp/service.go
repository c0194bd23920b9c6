package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"aurum-storefront/internal/domain"
	otprepo "aurum-storefront/internal/repository/otp"
	"aurum-storefront/internal/session"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 10 * time.Minute

	codeMin   = 100000
	codeRange = 900000
)

var (
	// ErrEmailRequired is returned by Send without an email.
	ErrEmailRequired = errors.New("email required")
	// ErrEmailAndCodeRequired is returned by Verify when either field is empty.
	ErrEmailAndCodeRequired = errors.New("email and code required")
	// ErrInvalidCode covers a missing, mismatched, or expired code.
	ErrInvalidCode = errors.New("invalid or expired otp")
	// ErrCustomerNotFound is returned by Verify when no platform customer can be resolved.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerUnresolved is returned by Send when provisioning yields no customer id.
	ErrCustomerUnresolved = errors.New("failed to resolve customer id")
)

// CustomerDirectory is the slice of the commerce platform the exchange needs.
// Lookups return domain.ErrNotFound when nothing matches; CreateCustomer returns an
// error wrapping domain.ErrAlreadyExists when the email is already registered.
type CustomerDirectory interface {
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, email string) (*domain.Customer, error)
}

// CartReader loads the remote cart snapshot attached to a verified customer.
type CartReader interface {
	Get(ctx context.Context, customerID string) (*domain.RemoteCart, error)
}

// Mailer delivers a code to the customer.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// Config tunes the exchange.
type Config struct {
	TTL time.Duration
	// BypassCode, when non-empty, is accepted for any email without consuming the stored code.
	BypassCode string
	// HashCost is the bcrypt cost for stored codes; zero means bcrypt.DefaultCost.
	HashCost int
}

// Deps are the collaborators of Service. Carts may be nil, in which case the cart
// returned by the directory is used as is.
type Deps struct {
	Store     otprepo.Repository
	Customers CustomerDirectory
	Carts     CartReader
	Mailer    Mailer
	Sessions  *session.Issuer
	Logger    zerolog.Logger
}

// SendResult is the outcome of a send.
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// VerifyResult is the outcome of a successful verify.
type VerifyResult struct {
	Success  bool             `json:"success"`
	Token    string           `json:"token"`
	Customer *domain.Customer `json:"customer"`
}

// Service runs the email one-time-code login.
type Service struct {
	deps     Deps
	cfg      Config
	now      func() time.Time
	generate func() (string, error)
}

// New creates a Service.
func New(deps Deps, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &Service{
		deps:     deps,
		cfg:      cfg,
		now:      time.Now,
		generate: randomCode,
	}
}

// Send provisions the customer if needed, stores a fresh code, and mails it.
// A mail failure still reports success; the code is logged and the result carries a warning.
func (s *Service) Send(ctx context.Context, email string) (*SendResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	customer, err := s.findOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.ID == "" {
		s.deps.Logger.Error().Str("email", email).Msg("customer id could not be resolved")
		return nil, ErrCustomerUnresolved
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	rec := domain.OTPRecord{
		Email:      email,
		CodeHash:   string(hash),
		CustomerID: customer.ID,
		ExpiresAt:  s.now().Add(s.cfg.TTL),
	}
	if err := s.deps.Store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	if err := s.deps.Mailer.SendOTP(ctx, email, code); err != nil {
		s.deps.Logger.Error().Err(err).Str("email", email).Msg("otp email failed")
		s.deps.Logger.Warn().Str("email", email).Str("code", code).Msg("backup otp")
		return &SendResult{
			Success: true,
			Message: "OTP generated but email failed. Check server console.",
			Warning: "Email service unavailable",
		}, nil
	}

	s.deps.Logger.Info().Str("email", email).Msg("otp email sent")
	return &SendResult{Success: true, Message: "OTP sent to " + email}, nil
}

// Verify checks code for email, consumes it, and issues a session.
func (s *Service) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrEmailAndCodeRequired
	}

	customerID, err := s.accept(ctx, email, code)
	if err != nil {
		return nil, err
	}

	customer, err := s.resolve(ctx, email, customerID)
	if err != nil {
		return nil, err
	}

	if s.deps.Carts != nil {
		remote, err := s.deps.Carts.Get(ctx, customer.ID)
		if err != nil {
			s.deps.Logger.Warn().Err(err).Str("customer_id", customer.ID).Msg("load remote cart failed")
		} else {
			customer.Cart = remote
		}
	}

	token, err := s.deps.Sessions.Issue(domain.Claims{
		CustomerID: customer.ID,
		Email:      customer.Email,
		FirstName:  customer.FirstName,
		LastName:   customer.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &VerifyResult{Success: true, Token: token, Customer: customer}, nil
}

// accept returns the customer id bound to the accepted code, possibly empty.
func (s *Service) accept(ctx context.Context, email, code string) (string, error) {
	rec, err := s.deps.Store.Get(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("load code: %w", err)
	}

	if s.cfg.BypassCode != "" && code == s.cfg.BypassCode {
		s.deps.Logger.Warn().Str("email", email).Msg("otp bypass code used")
		if rec != nil {
			return rec.CustomerID, nil
		}
		return "", nil
	}

	if rec == nil || rec.Expired(s.now()) {
		return "", ErrInvalidCode
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		return "", ErrInvalidCode
	}
	if err := s.deps.Store.Consume(ctx, *rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("consume code: %w", err)
	}
	return rec.CustomerID, nil
}

func (s *Service) resolve(ctx context.Context, email, customerID string) (*domain.Customer, error) {
	var (
		customer *domain.Customer
		err      error
	)
	if customerID != "" {
		customer, err = s.deps.Customers.GetCustomer(ctx, customerID)
	} else {
		customer, err = s.deps.Customers.FindCustomerByEmail(ctx, email)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if customer == nil {
		s.deps.Logger.Info().Str("email", email).Msg("verified customer missing, provisioning")
		customer, err = s.findOrCreate(ctx, email)
		if err != nil {
			return nil, err
		}
	}
	if customer == nil || customer.ID == "" {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

func (s *Service) findOrCreate(ctx context.Context, email string) (*domain.Customer, error) {
	customer, err := s.deps.Customers.FindCustomerByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	customer, err = s.deps.Customers.CreateCustomer(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, err
	}

	s.deps.Logger.Info().Str("email", email).Msg("email taken, retrying lookup")
	customer, err = s.deps.Customers.FindCustomerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return customer, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
