package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aurum-storefront/internal/domain"
	checkoutsvc "aurum-storefront/internal/service/checkout"
	otpsvc "aurum-storefront/internal/service/otp"
	"aurum-storefront/internal/shopify"
)

type OTPService interface {
	Send(ctx context.Context, email string) (*otpsvc.SendResult, error)
	Verify(ctx context.Context, email, code string) (*otpsvc.VerifyResult, error)
}

type CartService interface {
	Get(ctx context.Context, customerID string) (*domain.RemoteCart, error)
	Save(ctx context.Context, customerID string, items []domain.LineItem, expectedVersion *int64) (*domain.RemoteCart, error)
}

type CustomerService interface {
	Profile(ctx context.Context, customerID string) (*domain.Customer, error)
	UpdateProfile(ctx context.Context, customerID string, in domain.ProfileUpdate) (*domain.Customer, error)
	AddAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error)
	UpdateAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error)
	DeleteAddress(ctx context.Context, customerID, addressID string) error
	SetDefaultAddress(ctx context.Context, customerID, addressID string) error
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, customerID string, in checkoutsvc.Input) (*shopify.CreatedOrder, error)
}

// SessionVerifier checks bearer tokens.
type SessionVerifier interface {
	Verify(token string) (domain.Claims, bool)
}

// Pinger is a dependency probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the routes. Ready maps a name to a probed backend.
type Deps struct {
	OTP            OTPService
	Carts          CartService
	Customers      CustomerService
	Checkout       CheckoutService
	Sessions       SessionVerifier
	Ready          map[string]Pinger
	AllowedOrigins []string
}

const requestIDKey = "request_id"

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, deps Deps) (*gin.Engine, error) {
	switch {
	case deps.OTP == nil:
		return nil, errors.New("otp service is required")
	case deps.Carts == nil:
		return nil, errors.New("cart service is required")
	case deps.Customers == nil:
		return nil, errors.New("customer service is required")
	case deps.Checkout == nil:
		return nil, errors.New("checkout service is required")
	case deps.Sessions == nil:
		return nil, errors.New("session verifier is required")
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api")
	api.POST("/auth/otp", h.otp)
	api.POST("/checkout", optionalSession(deps.Sessions), h.checkout)

	auth := api.Group("/auth", requireSession(deps.Sessions))
	auth.GET("/cart", h.getCart)
	auth.POST("/cart", h.saveCart)
	auth.GET("/me", h.getMe)
	auth.PUT("/me", h.updateMe)
	auth.POST("/address", h.createAddress)
	auth.PUT("/address", h.updateAddress)
	auth.DELETE("/address", h.deleteAddress)
	auth.PUT("/address/default", h.setDefaultAddress)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger zerolog.Logger
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
