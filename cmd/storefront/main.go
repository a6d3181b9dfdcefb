package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/designs"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/retry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "storefront"

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	var in input
	cmd := flag.String("cmd", cmdCartShow, "command: "+commandList())
	flag.StringVar(&in.productID, "product", "", "product id")
	flag.StringVar(&in.name, "name", "", "product or design name")
	flag.StringVar(&in.price, "price", "0", "unit price")
	flag.IntVar(&in.quantity, "qty", 0, "quantity")
	flag.IntVar(&in.maxQuantity, "max", 0, "max quantity for the product, 0 for none")
	flag.StringVar(&in.size, "size", "", "selected size")
	flag.StringVar(&in.color, "color", "", "selected color")
	flag.StringVar(&in.image, "image", "", "product image reference")
	flag.StringVar(&in.username, "username", "", "account username")
	flag.StringVar(&in.password, "password", "", "account password")
	flag.StringVar(&in.email, "email", "", "account email")
	flag.StringVar(&in.firstName, "first-name", "", "account first name")
	flag.StringVar(&in.lastName, "last-name", "", "account last name")
	flag.StringVar(&in.designID, "design", "", "design id")
	flag.StringVar(&in.templateID, "template", "", "design template id")
	flag.IntVar(&in.fineness, "fineness", 0, "metal fineness: 585|750|925")
	flag.StringVar(&in.metalColor, "metal-color", "", "metal color: yellow_gold|white_gold|silver")
	flag.StringVar(&in.gemstone, "gemstone", "", "gemstone type: diamond|sapphire|ruby")
	flag.StringVar(&in.gemstoneSize, "gemstone-size", "", "gemstone size: small|medium|large")
	flag.Parse()

	in.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { in.set[f.Name] = true })

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		return 1
	}

	logg = logger.New(loggerOptions(cfg.App, os.Stderr))
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"cmd":     *cmd,
		"storage": cfg.Storage.Driver,
	})

	kv, closeStore, err := openStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open store", err)
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			logg.Error(ctx, "error closing store", err)
		}
	}()

	persistence := metrics.NewPersistenceMetrics(prometheus.DefaultRegisterer)
	retryMetrics := metrics.NewRetryMetrics(prometheus.DefaultRegisterer)

	api, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			Metrics:     retryMetrics,
			OnRetry: func(attempt int, delay time.Duration) {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"attempt": attempt + 1,
					"delay":   delay.String(),
				}), "retrying api request")
			},
		},
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create api client", err)
		return 1
	}

	engine, err := cart.NewEngine(ctx, kv, cart.Options{
		Logger:      logg,
		Metrics:     persistence,
		WriteBuffer: cfg.Cart.WriteBuffer,
	})
	if err != nil {
		logg.Error(ctx, "failed to restore cart", err)
		return 1
	}
	defer func() {
		if err := engine.Close(ctx); err != nil {
			logg.Error(ctx, "error draining cart writes", err)
		}
	}()

	sessions, err := session.NewStore(ctx, kv, api, session.Options{Logger: logg, Metrics: persistence})
	if err != nil {
		logg.Error(ctx, "failed to restore session", err)
		return 1
	}

	authService, err := auth.NewService(auth.ServiceParams{API: api, Session: sessions, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		return 1
	}
	designService, err := designs.NewService(designs.ServiceParams{API: api, Session: sessions, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to create designs service", err)
		return 1
	}

	a := &app{
		cart:     engine,
		sessions: sessions,
		auth:     authService,
		designs:  designService,
		out:      os.Stdout,
	}
	if err := a.run(ctx, *cmd, in); err != nil {
		logg.Error(ctx, "command failed", err)
		fmt.Fprintln(os.Stderr, pkgerrors.UserMessage(err))
		return 1
	}
	return 0
}
