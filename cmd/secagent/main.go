package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/secagent/internal/agent"
	"github.com/rahul/secagent/internal/edgar"
	"github.com/rahul/secagent/internal/gateway"
	"github.com/rahul/secagent/internal/governance"
	"github.com/rahul/secagent/internal/observability"
	"github.com/rahul/secagent/internal/query"
	"github.com/rahul/secagent/internal/store"
	"github.com/rahul/secagent/internal/tools"
	"github.com/rahul/secagent/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	cacheInfo := flag.Bool("cache-info", false, "print company cache status and exit")
	refreshCache := flag.Bool("refresh-cache", false, "force refresh the company cache and exit")
	flag.Parse()

	cfg := config.LoadConfig(*configPath)

	edgarClient := edgar.NewClient(cfg.App.UserAgent, cfg.App.CacheDir)

	if *cacheInfo {
		data, _ := json.MarshalIndent(edgarClient.CacheInfo(), "", "  ")
		fmt.Println(string(data))
		return
	}
	if *refreshCache {
		if err := edgarClient.RefreshCompanyData(context.Background()); err != nil {
			log.Fatalf("cache refresh failed: %v", err)
		}
		fmt.Println("Company cache refreshed.")
		return
	}

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	// Initialize Tools
	registry := tools.NewRegistry()
	registry.Register(tools.NewCIKLookupTool(edgarClient))
	registry.Register(tools.NewCompanyInfoTool(edgarClient))
	registry.Register(tools.NewCompanySearchTool(edgarClient))
	registry.Register(tools.NewCompanyFactsTool(edgarClient))
	registry.Register(tools.NewRecentFilingsTool(edgarClient))
	registry.Register(tools.NewFilingContentTool(edgarClient))
	registry.Register(tools.NewFinancialDataTool(edgarClient))

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}

	promptsDir := cfg.App.Prompts
	if promptsDir == "" {
		promptsDir = "./prompts"
	}
	prompts := agent.NewPromptManager(promptsDir)

	gov := governance.NewDefaultPolicyEngine()
	for _, name := range cfg.Agent.DeniedTools {
		gov.DenyTool(name)
	}

	logger := observability.NewLogger()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	// Assemble the agent pipeline
	fallback := agent.NewFallbackEngine()
	if cfg.Agent.MinFallbackYear > 0 {
		fallback.MinYear = cfg.Agent.MinFallbackYear
	}

	replanner := agent.NewLLMReplanner(llm, registry, logger)
	executor := agent.NewExecutor(registry, fallback, replanner, gov, logger)
	if cfg.Agent.MaxReplanningAttempts > 0 {
		executor.MaxReplanningAttempts = cfg.Agent.MaxReplanningAttempts
	}
	if cfg.Agent.MaxTotalReplannings > 0 {
		executor.MaxTotalReplannings = cfg.Agent.MaxTotalReplannings
	}

	planner := agent.NewPlanner(llm, registry, prompts, logger)
	synthesizer := agent.NewSynthesizer(llm, prompts, logger)
	validator := query.NewValidator(llm, logger)
	parser := query.NewParser(edgarClient)

	secAgent := agent.NewSecAgent(validator, parser, planner, executor, synthesizer, history, logger)
	brain := agent.NewCommandRouter(secAgent, history)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gateways
	var gateways []gateway.Messenger
	var pushGateway agent.Messenger

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, brain)
		if err != nil {
			log.Fatal(err)
		}
		gateways = append(gateways, tg)
		pushGateway = tg
	}
	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, brain)
		if err != nil {
			log.Fatal(err)
		}
		gateways = append(gateways, dc)
		if pushGateway == nil {
			pushGateway = dc
		}
	}
	if httpCfg, ok := cfg.GetHTTPConfig(); ok {
		addr := httpCfg.Addr
		if addr == "" {
			addr = ":8080"
		}
		gateways = append(gateways, gateway.NewHTTPGateway(addr, brain))
	}
	if len(gateways) == 0 {
		log.Fatal("No gateway enabled in config")
	}

	// Start Background Scheduler with a cancelable context
	scheduler := agent.NewScheduler(brain, history, pushGateway)
	go scheduler.Start(ctx)

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
			}
		}
	}()

	for _, gw := range gateways {
		gw := gw
		go func() {
			if err := gw.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}

	// Wait for shutdown signal
	<-ctx.Done()

	for _, gw := range gateways {
		if err := gw.Stop(); err != nil {
			log.Printf("Error stopping gateway: %v", err)
		}
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
