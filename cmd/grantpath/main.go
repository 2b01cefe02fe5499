package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	aicore "github.com/grantpath/grantpath/src/ai/core"
	_ "github.com/grantpath/grantpath/src/ai/providers"

	"github.com/grantpath/grantpath/src/advisor"
	"github.com/grantpath/grantpath/src/ai"
	"github.com/grantpath/grantpath/src/api"
	"github.com/grantpath/grantpath/src/cache"
	"github.com/grantpath/grantpath/src/config"
	"github.com/grantpath/grantpath/src/data"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn, err := data.GetMySQLDSN()
	if err != nil {
		log.Fatalf("grantpath: %v", err)
	}
	db, err := data.ConnectMySQL(dsn)
	if err != nil {
		log.Fatalf("grantpath: %v", err)
	}

	base := config.LoadBase(db)
	advisorCfg := config.LoadAdvisor()

	table, err := data.LoadGrants(db)
	if err != nil {
		log.Fatalf("grantpath: load grants: %v", err)
	}
	log.Printf("grantpath: loaded %d grant records (fingerprint %016x)", table.Len(), table.Fingerprint())

	// Without provider credentials the advisor still runs; every result is
	// computed by the fallback engine and reports carry the degraded flag.
	var service *ai.Service
	aiEnv := config.LoadAIFromEnv()
	client, err := aicore.NewClient(aicore.FactoryConfig{
		Provider:     aiEnv.Provider,
		SystemPrompt: aiEnv.SystemPrompt,
		Model:        aiEnv.Model,
		OpenAIKey:    aiEnv.OpenAIKey,
		ClaudeKey:    aiEnv.ClaudeKey,
	})
	if err != nil {
		log.Printf("grantpath: generation service disabled: %v", err)
	} else {
		service = ai.NewService(client, aicore.Options{})
	}

	mgr := advisor.NewManager(service, advisorCfg)
	var store *cache.ReportStore
	if base.RedisURL != "" {
		store = cache.NewReportStore(cache.MustRedis(base.RedisURL), advisorCfg.ReportTTL)
	} else {
		log.Printf("grantpath: no redis url configured, report caching disabled")
	}

	srv := api.NewServer(base, mgr, store, table)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("grantpath: %v", err)
	}
	log.Printf("grantpath: shutdown complete")
}
