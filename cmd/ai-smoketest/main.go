package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	aicore "github.com/grantpath/grantpath/src/ai/core"
	_ "github.com/grantpath/grantpath/src/ai/providers"
	"github.com/grantpath/grantpath/src/config"
)

var (
	providersFlag = flag.String("providers", "openai", "Comma-separated provider list or 'all'")
	systemFlag    = flag.String("system", "", "Override system prompt")
	modelFlag     = flag.String("model", "", "Override model name")
	promptFlag    = flag.String("prompt", defaultPrompt, "Prompt to send")
	timeoutFlag   = flag.Duration("timeout", 45*time.Second, "Per-provider timeout")
	tempFlag      = flag.Float64("temp", 0.2, "Completion temperature")
	maxLenFlag    = flag.Int("max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
)

var allProviders = []string{
	"openai",
	"anthropic",
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	providers := resolveProviders(*providersFlag)
	if len(providers) == 0 {
		log.Fatal("no providers specified")
	}

	aiEnv := config.LoadAIFromEnv()
	systemPrompt := pickFirst(*systemFlag, aiEnv.SystemPrompt, defaultSystemPrompt)
	model := pickFirst(*modelFlag, aiEnv.Model)

	for _, provider := range providers {
		if err := runProvider(provider, model, systemPrompt, aiEnv); err != nil {
			log.Printf("[%s] ERROR: %v", provider, err)
		}
	}
}

func runProvider(provider, model, systemPrompt string, aiEnv config.AI) error {
	cfg := aicore.FactoryConfig{
		Provider:     provider,
		SystemPrompt: systemPrompt,
		Model:        model,
		Temperature:  *tempFlag,
		OpenAIKey:    aiEnv.OpenAIKey,
		ClaudeKey:    aiEnv.ClaudeKey,
	}

	client, err := aicore.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}

	fmt.Printf("=== %s (%s) ===\n", provider, aicore.ResolveModelName(provider, model))
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	start := time.Now()
	reply, err := client.Complete(ctx, *promptFlag, aicore.Options{
		Model:        model,
		SystemPrompt: systemPrompt,
		Temperature:  *tempFlag,
	})
	if err != nil {
		fmt.Printf("complete FAILED: %v\n", err)
		return nil
	}
	fmt.Printf("complete OK (%.1fs)\n%s\n", time.Since(start).Seconds(), truncate(reply, *maxLenFlag))
	return nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func pickFirst(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

const defaultPrompt = `Compute the following aggregate over the grants dataset and reply with ONLY a JSON array of {"label": string, "value": number} objects.

Operation: grouped_sum
Value column: amount_usd
Group column: funder_name
Filter: s=&p=&g=
Schema: funder_name:text, recip_name:text, amount_usd:numeric, grant_subject_tran:text, grant_population_tran:text, grant_geo_area_tran:text, year_issued:numeric`

const defaultSystemPrompt = "You are a grants data analyst used for internal provider smoke testing. Respond with only the requested JSON."
