package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/lastbite/internal/backend"
	"github.com/appetiteclub/lastbite/internal/cart"
	"github.com/appetiteclub/lastbite/internal/menu"
	"github.com/appetiteclub/lastbite/internal/storefront"
	"github.com/appetiteclub/lastbite/pkg"
	"github.com/joho/godotenv"
)

const (
	appNamespace = "STOREFRONT"
	appName      = "storefront"
	appVersion   = "0.1.0"
)

func main() {
	_ = godotenv.Load()

	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	store, err := storefront.NewStore(config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot create cart id store: %v", appName, appVersion, err)
	}
	if err := store.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start cart id store: %v", appName, appVersion, err)
	}

	timeout, err := time.ParseDuration(config.GetStringOrDef("backend.timeout", "10s"))
	if err != nil {
		log.Fatalf("%s(%s) invalid backend.timeout: %v", appName, appVersion, err)
	}
	backendURL := config.GetStringOrDef("backend.url", backend.DefaultBaseURL)
	client := backend.NewHTTPClient(backendURL, timeout, logger)

	// Event publishing is optional; without nats.url the storefront stays silent.
	var publisher events.Publisher
	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: store.Stop},
	}
	if natsURL, _ := config.GetString("nats.url"); natsURL != "" {
		pub, err := pkg.NewNATSPublisher(natsURL, appName, logger)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		publisher = pub
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return pub.Close()
			},
		})
	}

	loader := menu.NewLoader(client, logger)
	controller := cart.NewController(cart.ControllerDeps{
		Client:    client,
		Store:     store,
		Publisher: publisher,
	}, logger)

	bootstrap := storefront.NewBootstrap(loader, controller, logger)
	lifecycles = append(lifecycles, bootstrap)

	handler := storefront.NewHandler(storefront.HandlerDeps{
		Menu: loader,
		Cart: controller,
	}, config, logger)

	// Browser facing: CORS stays enabled.
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
	})

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s) against %s", appName, appVersion, backendURL)

	if err := ms.Run(ctx); err != nil {
		_ = store.Stop(context.Background())
		log.Fatalf("%s(%s) stopped with error: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
