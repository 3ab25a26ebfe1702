package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/charon-sso/charon/config"
	"github.com/charon-sso/charon/internal/adapters/handlers"
	"github.com/charon-sso/charon/internal/adapters/memory"
	"github.com/charon-sso/charon/internal/adapters/oidc"
	adapterredis "github.com/charon-sso/charon/internal/adapters/redis"
	"github.com/charon-sso/charon/internal/core"
	"github.com/charon-sso/charon/internal/cryptoutil"
	"github.com/charon-sso/charon/internal/data"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/domain/ticket"
	"github.com/charon-sso/charon/internal/observability/events"
	"github.com/charon-sso/charon/internal/observability/statsd"
	"github.com/charon-sso/charon/internal/ports"
	"github.com/charon-sso/charon/internal/service"
)

// App bundles every wired component of a running instance.
type App struct {
	Config config.AppConfig
	Logger *slog.Logger

	Metrics *statsd.Client
	DB      *sql.DB
	Redis   goredis.UniversalClient

	Tickets  core.TicketRegistry
	Services core.ServiceRegistry

	AuthManager *service.AuthManager
	Central     *service.CentralService
	Validator   *service.ContextValidator
	Sweeper     *service.Sweeper
}

// Build wires configuration into a runnable App. It fails fast: any
// unreachable backing store or invalid option aborts startup.
func Build(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}
	app.Metrics = metrics

	if err := app.buildRegistries(ctx, cfg, logger); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildServices(ctx, cfg, logger); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases every held connection. Safe to call on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Metrics != nil {
		errs = append(errs, a.Metrics.Close())
	}
	return errors.Join(errs...)
}

// buildRegistries selects and connects the ticket and service registries.
func (a *App) buildRegistries(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) error {
	switch cfg.Tickets.Backend {
	case config.BackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client

		var encryptor cryptoutil.Encryptor
		if key := cfg.Tickets.EncryptionKey; key != "" {
			encryptor, err = cryptoutil.NewAESGCMEncryptor([]byte(key))
			if err != nil {
				return fmt.Errorf("ticket encryption: %w", err)
			}
		}
		registry, err := adapterredis.NewTicketRegistry(adapterredis.TicketRegistryOptions{
			Client:    client,
			Encryptor: encryptor,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("redis ticket registry: %w", err)
		}
		a.Tickets = registry
	default:
		a.Tickets = memory.NewTicketRegistry(nil)
	}

	if cfg.Postgres.Enabled {
		db, err := ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
		if cfg.Postgres.RunMigrationsOnStart {
			if err := data.EnsureSchema(ctx, db); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		a.Services = data.NewServiceRegistryRepo(db)
	} else {
		a.Services = memory.NewServiceRegistry(nil)
	}
	return nil
}

// buildServices assembles the handler chain, policies, validator and the
// ticket-issuing core on top of the registries.
func (a *App) buildServices(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) error {
	var (
		plan       []ports.HandlerEntry
		providers  []ports.MultifactorProvider
		populators []ports.MetadataPopulator
	)

	if len(cfg.Auth.StaticUsers) > 0 {
		h, err := handlers.NewAcceptUsersHandler(handlers.AcceptUsersOptions{
			Users:  cfg.Auth.StaticUsers,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("accept-users handler: %w", err)
		}
		plan = append(plan, ports.HandlerEntry{Handler: h})
	}
	if len(cfg.Auth.StaticOTPTokens) > 0 {
		h, err := handlers.NewStaticOTPHandler(handlers.StaticOTPOptions{
			Tokens: cfg.Auth.StaticOTPTokens,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("static-otp handler: %w", err)
		}
		plan = append(plan, ports.HandlerEntry{Handler: h})
		providers = append(providers, h)
		populators = append(populators, &service.MultifactorContextPopulator{
			ContextAttribute: cfg.MFA.ContextAttribute,
			Handler:          h,
			ProviderID:       handlers.ProviderID,
		})
	}
	if cfg.Auth.OIDC.Enabled() {
		h, err := oidc.NewHandler(ctx, oidc.HandlerOptions{
			ClientID:       cfg.Auth.OIDC.ClientID,
			ClientSecret:   cfg.Auth.OIDC.ClientSecret,
			RedirectURL:    cfg.Auth.OIDC.RedirectURL,
			Scope:          cfg.Auth.OIDC.Scope,
			DiscoveryURL:   cfg.Auth.OIDC.DiscoveryURL,
			PrincipalClaim: cfg.Auth.OIDC.PrincipalClaim,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("oidc handler: %w", err)
		}
		plan = append(plan, ports.HandlerEntry{Handler: h})
	}
	if len(plan) == 0 {
		return errors.New("no authentication handlers configured; set AUTH_STATIC_USERS, AUTH_STATIC_OTP_TOKENS or AUTH_OIDC_*")
	}

	sink := events.NewMetricsSink(a.Metrics, logger)

	manager, err := service.NewAuthManager(service.AuthManagerOptions{
		Plan:                     plan,
		Resolver:                 &service.RegisteredServiceHandlerResolver{Services: a.Services, Logger: logger},
		Policies:                 buildPolicies(cfg.Auth),
		Populators:               populators,
		Events:                   sink,
		PrincipalResolutionFatal: cfg.Auth.PrincipalResolutionFatal,
		Logger:                   logger,
	})
	if err != nil {
		return fmt.Errorf("auth manager: %w", err)
	}
	a.AuthManager = manager

	a.Validator = service.NewContextValidator(service.ContextValidatorOptions{
		Providers:              providers,
		ContextAttribute:       cfg.MFA.ContextAttribute,
		TrustedDeviceAttribute: cfg.MFA.TrustedDeviceAttribute,
		GlobalFailureMode:      services.FailureMode(cfg.MFA.GlobalFailureMode),
		Logger:                 logger,
	})

	var locks core.LockFactory
	if cfg.Tickets.LockingEnabled {
		locks = memory.NewStripedLockFactory(cfg.Tickets.LockStripes)
	} else {
		locks = memory.NoopLockFactory{}
	}

	central, err := service.NewCentralService(service.CentralServiceOptions{
		Tickets:          a.Tickets,
		Services:         a.Services,
		Locks:            locks,
		ContextValidator: a.Validator,
		Policies:         ticketPolicies(cfg.Tickets),
		Events:           sink,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("central service: %w", err)
	}
	a.Central = central

	if cfg.Tickets.SweepInterval > 0 {
		sweeper, err := service.NewSweeper(service.SweeperOptions{
			Registry: a.Tickets,
			Interval: cfg.Tickets.SweepInterval,
			Logger:   logger,
			Metrics:  a.Metrics,
		})
		if err != nil {
			return fmt.Errorf("sweeper: %w", err)
		}
		a.Sweeper = sweeper
	}
	return nil
}

// buildPolicies maps the configured policy mode onto concrete policies.
func buildPolicies(cfg config.AuthConfig) []ports.AuthenticationPolicy {
	switch cfg.PolicyMode {
	case config.PolicyAll:
		return []ports.AuthenticationPolicy{service.AnyPolicy{TryAll: true}}
	case config.PolicyRequiredHandler:
		return []ports.AuthenticationPolicy{service.RequiredHandlerPolicy{HandlerName: cfg.RequiredHandler}}
	default:
		return []ports.AuthenticationPolicy{service.AnyPolicy{}}
	}
}

// ticketPolicies maps ticket configuration onto expiration policies. Granting
// and proxy-granting tickets share the sliding window; service and proxy
// tickets share the use-bounded timeout.
func ticketPolicies(cfg config.TicketsConfig) service.TicketPolicies {
	sliding := ticket.SlidingWindowPolicy(cfg.TGTMaxIdle, cfg.TGTMaxLifetime)
	bounded := ticket.MultiUseOrTimeoutPolicy(cfg.STMaxUses, cfg.STTimeToLive)
	return service.TicketPolicies{
		Granting:      sliding,
		Service:       bounded,
		ProxyGranting: sliding,
		Proxy:         bounded,
	}
}
