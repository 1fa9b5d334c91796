package app

import (
	"fmt"

	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/database"
	"github.com/tech-arch1tect/authsession/handlers/auth"
	"github.com/tech-arch1tect/authsession/middleware/ratelimit"
	"github.com/tech-arch1tect/authsession/server"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/redisclient"
	"github.com/tech-arch1tect/authsession/services/refreshtoken"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"github.com/tech-arch1tect/authsession/services/sweeper"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config      *config.Config
	logger      *logging.Service
	fxOptions   []fx.Option
	withSweeper bool
	errors      []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		fxOptions:   make([]fx.Option, 0),
		withSweeper: true,
		errors:      make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithLogger overrides the logger that would otherwise be built from config.
func (b *AppBuilder) WithLogger(logger *logging.Service) *AppBuilder {
	b.logger = logger
	return b
}

// WithoutSweeper disables the scheduled purge of expired records.
func (b *AppBuilder) WithoutSweeper() *AppBuilder {
	b.withSweeper = false
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	app := &App{config: b.config}

	options := b.buildFxOptions()
	options = append(options, fx.Invoke(func(srv *server.Server, db *gorm.DB, logger *logging.Service) {
		app.server = srv
		app.db = db
		app.logger = logger
	}))

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}
	if b.config == nil {
		return fmt.Errorf("config required")
	}
	return b.config.Validate()
}

func (b *AppBuilder) buildFxOptions() []fx.Option {
	loggerOption := logging.Module
	if b.logger != nil {
		loggerOption = fx.Supply(b.logger)
	}

	options := []fx.Option{
		config.NewProvider(b.config),
		loggerOption,
		fx.NopLogger,
		database.Module,
		metrics.Module,
		tokenpolicy.Module,
		identity.Module,
		redisclient.Module,
		revocation.Module,
		jwt.Module,
		refreshtoken.Module,
		auth.Module,
		ratelimit.Module,
		server.NewProvider(),
	}

	if b.withSweeper {
		options = append(options, sweeper.Module)
	}

	return append(options, b.fxOptions...)
}
