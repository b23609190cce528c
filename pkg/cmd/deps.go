package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/cadenzahq/cadenza/pkg/ai"
	"github.com/cadenzahq/cadenza/pkg/ai/providers"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/runner"
	"github.com/cadenzahq/cadenza/pkg/status"
	"github.com/cadenzahq/cadenza/pkg/template"
	"github.com/cadenzahq/cadenza/pkg/transport"
)

// OpenAI-compatible chat-completion endpoints per provider.
const (
	openAIBaseURL    = "https://api.openai.com/v1"
	anthropicBaseURL = "https://api.anthropic.com/v1"
	googleBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// NewAIOrchestrator assembles the AI layer: provider clients from API-key
// env vars, the budget gate on Redis when a URL is configured and in memory
// otherwise.
func NewAIOrchestrator(
	store persistence.Persistence,
	resolver *template.Resolver,
	redisURL string,
	logger *slog.Logger,
) *ai.Orchestrator {
	var clients []providers.Client

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		clients = append(clients, providers.NewHTTPClient("openai", openAIBaseURL, key))
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		clients = append(clients, providers.NewHTTPClient("anthropic", anthropicBaseURL, key))
	}

	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		clients = append(clients, providers.NewHTTPClient("google", googleBaseURL, key))
	}

	var budget ai.BudgetGate = ai.NewMemoryBudget()

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			panic(fmt.Errorf("invalid redis URL: %w", err))
		}

		budget = ai.NewRedisBudget(redis.NewClient(opts))
	}

	return ai.NewOrchestrator(store, budget, providers.NewDispatcher(clients...), resolver, logger)
}

// NewDeps wires the executor collaborator set around the store and bus. The
// status publisher stamps no workspace; multi-tenant services carry the
// workspace inside each event's execution context instead.
func NewDeps(
	store persistence.Persistence,
	statusPub message.Publisher,
	bus eventbus.EventBus,
	orchestrator protocol.AIOrchestrator,
	resolver *template.Resolver,
	logger *slog.Logger,
) protocol.Deps {
	// The memo runner is scoped to one execution; chain and scheduler runs
	// substitute a fresh one per execution. Passthrough covers direct ad hoc
	// calls.
	return protocol.Deps{
		Store:      store,
		Runner:     runner.Passthrough{},
		Status:     status.NewPublisher(statusPub, "", logger),
		Dispatcher: eventbus.NewDispatcher(bus, logger),
		Email:      transport.NewLogEmail(logger),
		Sms:        transport.NewLogSms(logger),
		AI:         orchestrator,
		Resolver:   resolver,
	}
}
