// msgpiped serves the message pipeline over HTTP. Configuration is YAML;
// provider API keys come from the environment (a .env file is honored).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/luminachat/msgpipe/internal/api"
	"github.com/luminachat/msgpipe/internal/chat"
	"github.com/luminachat/msgpipe/internal/config"
	"github.com/luminachat/msgpipe/internal/guard"
	"github.com/luminachat/msgpipe/internal/logging"
	"github.com/luminachat/msgpipe/internal/outfilter"
	"github.com/luminachat/msgpipe/internal/provider"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Debug, cfg.LogDir)

	server := api.New(buildOrchestrator(cfg), cfg.Debug)

	go func() {
		errWatch := config.Watch(context.Background(), *configPath, func(fresh *config.Config) {
			server.SetOrchestrator(buildOrchestrator(fresh))
		})
		if errWatch != nil && errWatch != context.Canceled {
			log.Warnf("config watch stopped: %v", errWatch)
		}
	}()

	if err = server.Run(cfg.Addr()); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func buildOrchestrator(cfg *config.Config) *chat.Orchestrator {
	providers := make([]provider.Provider, 0, len(cfg.Providers))
	for _, entry := range cfg.Providers {
		providers = append(providers, provider.NewOpenAIClient(entry.Name, entry.BaseURL, entry.APIKey(), entry.Model))
	}

	orch := chat.New(provider.NewChain(providers...))
	orch.Guard = &guard.Guard{
		MaxMessageLength: cfg.Guard.MaxMessageLength,
		DensityThreshold: cfg.Guard.DensityThreshold,
	}
	orch.Filter = &outfilter.Filter{Placeholder: cfg.Filter.Placeholder}
	return orch
}
