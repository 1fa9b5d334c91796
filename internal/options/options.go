package options

import (
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/fx"
)

type Options struct {
	Config         *config.Config
	Logger         *logging.Service
	DisableSweeper bool
	ExtraFxOptions []fx.Option
}

type Option func(*Options)

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithLogger(logger *logging.Service) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithoutSweeper() Option {
	return func(opts *Options) {
		opts.DisableSweeper = true
	}
}

func WithFxOptions(fxOpts ...fx.Option) Option {
	return func(opts *Options) {
		opts.ExtraFxOptions = append(opts.ExtraFxOptions, fxOpts...)
	}
}
