package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ib-77/csp3/internal/config"
	"github.com/ib-77/csp3/pkg/csp/channel"
	"github.com/ib-77/csp3/pkg/csp/core"
	"github.com/ib-77/csp3/pkg/csp/inout"
	"github.com/ib-77/csp3/pkg/csp/metrics"
	"github.com/ib-77/csp3/pkg/csp/process"
	"github.com/ib-77/csp3/pkg/csp/stages"
	"github.com/ib-77/csp3/pkg/csp/worker"
)

// pipeline wires source -> double (cfg.Lines replicas) -> sink on one network.
type pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
	net    *process.Network
	chans  *metrics.Channels
}

func newPipeline(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) *pipeline {
	factory := worker.NewFactory(cfg.Pool,
		worker.WithLogger(logger),
		worker.WithPriority(cfg.Priority),
		worker.WithLockOSThread(cfg.LockOSThread))

	return &pipeline{
		cfg:    cfg,
		logger: logger,
		chans:  metrics.NewChannels(reg),
		net: process.NewNetwork(cfg.Pool,
			process.WithLogger(logger),
			process.WithFactory(factory),
			process.WithMaxProcesses(cfg.MaxProcesses),
			process.WithMetrics(metrics.NewNetwork(reg, cfg.Pool))),
	}
}

func (p *pipeline) newChannel(name string) *channel.Channel[int] {
	opts := []channel.Option{
		channel.WithName(name),
		channel.WithLogger(p.logger),
		channel.WithObserver(p.chans),
	}

	switch size := p.cfg.BufferSize; {
	case size == 0:
		return channel.NewOne[int](opts...)
	case size < 0:
		return channel.NewUnbounded[int](opts...)
	default:
		return channel.NewBuffered[int](size, opts...)
	}
}

// double returns every value doubled, in arrival order.
func (p *pipeline) double(ctx context.Context, values []int) ([]int, error) {
	in := p.newChannel("input")
	out := p.newChannel("output")

	_, err := inout.Run[int, int](ctx, p.net, "double", in, out, func() inout.Stage[int, int] {
		return stages.Map(func(_ context.Context, v int) int { return v * 2 })
	}, p.cfg.Lines,
		inout.WithLogger[int, int](p.logger),
		inout.WithCleanupTimeout[int, int](p.cfg.CleanupTimeout))
	if err != nil {
		in.Close()
		return nil, err
	}

	_, err = p.net.Start(ctx, process.NewFunc("source", func(ctx context.Context) error {
		return core.FromSlice[int](ctx, in, values...)
	}))
	if err != nil {
		in.Close()
		return nil, err
	}

	res, err := core.ToSlice[int](ctx, out)
	if err != nil {
		return res, err
	}
	return res, p.net.Wait(ctx)
}

func parseInts(args []string) ([]int, error) {
	values := make([]int, 0, len(args))
	for _, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", a)
		}
		values = append(values, v)
	}
	return values, nil
}
