package channel

import "go.uber.org/zap"

type Option func(*options)

type options struct {
	name     string
	logger   *zap.Logger
	observer Observer
}

// WithName labels the channel in logs and metrics. Defaults to its id.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}
