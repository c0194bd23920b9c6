package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"aurum-storefront/internal/config"
	"aurum-storefront/internal/db"
	"aurum-storefront/internal/httpserver"
	"aurum-storefront/internal/logging"
	"aurum-storefront/internal/mailer"
	cartrepo "aurum-storefront/internal/repository/cart"
	otprepo "aurum-storefront/internal/repository/otp"
	cartsvc "aurum-storefront/internal/service/cart"
	checkoutsvc "aurum-storefront/internal/service/checkout"
	customersvc "aurum-storefront/internal/service/customer"
	otpsvc "aurum-storefront/internal/service/otp"
	"aurum-storefront/internal/session"
	"aurum-storefront/internal/shopify"
)

func main() {
	cfg := config.Load()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogPretty), "api")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		p, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to db")
		}
		defer p.Close()
		pool = p
	}

	var otpStore otprepo.Repository
	switch cfg.OTPStore {
	case config.BackendRedis:
		rdb, err := db.ConnectRedis(ctx, db.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to redis")
		}
		defer closeRedis(rdb, logger)
		otpStore = otprepo.NewRedis(rdb)
	case config.BackendPostgres:
		otpStore = otprepo.NewPostgres(pool)
	default:
		otpStore = otprepo.NewFile(cfg.OTPFile)
	}

	shop := shopify.New(shopify.Config{
		Domain:      cfg.ShopifyDomain,
		AccessToken: cfg.ShopifyAdminToken,
		APIVersion:  cfg.ShopifyAPIVersion,
		Timeout:     cfg.ShopifyHTTPTimeout,
	}, logging.Component(logger, "shopify"))

	var cartRepo cartrepo.Repository
	if cfg.CartStore == config.BackendPostgres {
		cartRepo = cartrepo.NewPostgres(pool)
	} else {
		cartRepo = cartrepo.NewShopify(shop)
	}
	cartService := cartsvc.New(cartRepo)

	var mail otpsvc.Mailer
	if cfg.SMTPConfigured() {
		mail = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			CodeTTL:  cfg.OTPTTL,
		}, logging.Component(logger, "mailer"))
	} else {
		logger.Warn().Msg("SMTP_HOST not set, codes are written to the log")
		mail = mailer.NewLog(logging.Component(logger, "mailer"))
	}

	issuer, err := session.NewIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init session issuer")
	}

	otpService := otpsvc.New(otpsvc.Deps{
		Store:     otpStore,
		Customers: shop,
		Carts:     cartService,
		Mailer:    mail,
		Sessions:  issuer,
		Logger:    logging.Component(logger, "otp"),
	}, otpsvc.Config{
		TTL:        cfg.OTPTTL,
		BypassCode: cfg.OTPBypassCode,
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logging.Component(logger, "http"), httpserver.Deps{
		OTP:            otpService,
		Carts:          cartService,
		Customers:      customersvc.New(shop),
		Checkout:       checkoutsvc.New(shop, cartService, logging.Component(logger, "checkout")),
		Sessions:       issuer,
		Ready:          map[string]httpserver.Pinger{"otp store": otpStore},
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("server stopped")
	}
}

func closeRedis(c *goredis.Client, logger zerolog.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Msg("close redis")
	}
}
