// Package authsession assembles the token lifecycle service: access token
// issuance and revocation, refresh token rotation and the HTTP surface.
package authsession

import (
	"github.com/tech-arch1tect/authsession/app"
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/internal/options"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/fx"
)

type App = app.App

// New builds an application from the given options. Without WithConfig the
// configuration is read from the environment.
func New(opts ...options.Option) (*App, error) {
	o := &options.Options{}
	for _, opt := range opts {
		opt(o)
	}

	builder := app.NewApp()
	if o.Config != nil {
		builder.WithConfig(o.Config)
	}
	if o.Logger != nil {
		builder.WithLogger(o.Logger)
	}
	if o.DisableSweeper {
		builder.WithoutSweeper()
	}
	builder.WithFxOptions(o.ExtraFxOptions...)

	return builder.Build()
}

func WithConfig(cfg *config.Config) options.Option {
	return options.WithConfig(cfg)
}

func WithLogger(logger *logging.Service) options.Option {
	return options.WithLogger(logger)
}

func WithoutSweeper() options.Option {
	return options.WithoutSweeper()
}

func WithFxOptions(fxOpts ...fx.Option) options.Option {
	return options.WithFxOptions(fxOpts...)
}
