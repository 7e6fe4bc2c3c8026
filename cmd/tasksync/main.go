// Package main is the entry point for the tasksync CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wimvanhooff/google-tasks-tools/internal/backend/googletasks"
	"github.com/wimvanhooff/google-tasks-tools/internal/backend/todoist"
	"github.com/wimvanhooff/google-tasks-tools/internal/cli"
	"github.com/wimvanhooff/google-tasks-tools/internal/commands"
	"github.com/wimvanhooff/google-tasks-tools/internal/config"
	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

func main() {
	// Cancel the context on interrupt so a running cycle can stop cleanly
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	factory := func(ctx context.Context, cfg *config.Config) (*commands.Gateways, error) {
		source, err := openGateway(ctx, cfg, cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		mirror, err := openGateway(ctx, cfg, cfg.Mirror)
		if err != nil {
			return nil, fmt.Errorf("mirror: %w", err)
		}
		return &commands.Gateways{Source: source, Mirror: mirror}, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func openGateway(ctx context.Context, cfg *config.Config, svc config.ServiceConfig) (service.Gateway, error) {
	switch svc.Service {
	case config.ServiceTodoist:
		return todoist.New(ctx, svc.Token), nil
	case config.ServiceGoogleTasks:
		return googletasks.New(ctx, cfg.GoogleCredentialsPath(svc), cfg.GoogleTokenPath(svc))
	default:
		return nil, fmt.Errorf("unknown service %q", svc.Service)
	}
}
