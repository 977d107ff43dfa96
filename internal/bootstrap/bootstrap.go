// Package bootstrap builds the service graph shared by the server and the CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"versailles-assistant/internal/api"
	"versailles-assistant/internal/assistant"
	"versailles-assistant/internal/common/aws"
	"versailles-assistant/internal/common/config"
	"versailles-assistant/internal/common/database"
	"versailles-assistant/internal/common/google"
	httpclient "versailles-assistant/internal/common/http"
	"versailles-assistant/internal/common/knowledge"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/common/logger"
	"versailles-assistant/internal/common/observability"
	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/common/schedule"
	"versailles-assistant/internal/conversation"
	createplan "versailles-assistant/internal/workers/assistant/create-plan"
	plantools "versailles-assistant/internal/workers/assistant/plan-tools"
	retrieveevidence "versailles-assistant/internal/workers/assistant/retrieve-evidence"
	routequery "versailles-assistant/internal/workers/assistant/route-query"
	synthesizeanswer "versailles-assistant/internal/workers/assistant/synthesize-answer"

	"github.com/redis/go-redis/v9"
)

// Options controls how hard Build tries to reach backing services.
type Options struct {
	ConnectAttempts int
	InitialDelay    time.Duration
	// SkipStores leaves Postgres, Elasticsearch, Redis and SQLite unconnected.
	SkipStores bool
}

// App holds every constructed component. Unconfigured components are nil.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability
	Prompts       *prompts.Set

	LLM       *llm.Client
	Google    *google.Client
	Schedule  *schedule.Scraper
	Knowledge *knowledge.Base
	Store     *conversation.Store
	Mailer    *aws.SESClient
	Alerter   *aws.SNSClient

	Planner     *createplan.Handler
	Retriever   *retrieveevidence.Handler
	Synthesizer *synthesizeanswer.Handler
	Router      *routequery.Handler
	ToolPlanner *plantools.Handler
	Service     *assistant.Service

	postgres *database.PostgresClient
	es       *database.ElasticsearchClient
	redis    *database.RedisClient
	sqlite   *database.SQLiteClient
}

// Build connects the configured stores and wires the pipeline. Stores that
// cannot be reached after the configured attempts are logged and left out.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability, opts Options) (*App, error) {
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}

	set, err := prompts.Load(cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log, Observability: obs, Prompts: set}
	if !opts.SkipStores {
		a.connectStores(ctx, opts)
	}
	if err := a.connectNotifications(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.wire()
	return a, nil
}

func (a *App) connectStores(ctx context.Context, opts Options) {
	cfg := a.Config.Database

	if cfg.Postgres.Enabled() {
		err := retryWithBackoff(func() error {
			var err error
			a.postgres, err = database.NewPostgres(cfg.Postgres)
			if err != nil {
				return err
			}
			return a.postgres.Ping(ctx)
		}, opts.ConnectAttempts, opts.InitialDelay, a.Logger, "PostgreSQL connection")
		if err != nil {
			a.Logger.Warn("postgres unavailable, FAQ lookups disabled", map[string]interface{}{"error": err.Error()})
			if a.postgres != nil {
				_ = a.postgres.Close()
				a.postgres = nil
			}
		}
	}

	if cfg.Elasticsearch.GetURL() != "" {
		err := retryWithBackoff(func() error {
			var err error
			a.es, err = database.NewElasticsearch(cfg.Elasticsearch)
			if err != nil {
				return err
			}
			return a.es.Ping(ctx)
		}, opts.ConnectAttempts, opts.InitialDelay, a.Logger, "Elasticsearch connection")
		if err != nil {
			a.Logger.Warn("elasticsearch unavailable, official passages disabled", map[string]interface{}{"error": err.Error()})
			a.es = nil
		}
	}

	if cfg.Redis.Address != "" {
		err := retryWithBackoff(func() error {
			var err error
			a.redis, err = database.NewRedis(cfg.Redis)
			if err != nil {
				return err
			}
			return a.redis.Ping(ctx)
		}, opts.ConnectAttempts, opts.InitialDelay, a.Logger, "Redis connection")
		if err != nil {
			a.Logger.Warn("redis unavailable, answer cache disabled", map[string]interface{}{"error": err.Error()})
			if a.redis != nil {
				_ = a.redis.Close()
				a.redis = nil
			}
		}
	}

	if cfg.SQLite.Path != "" {
		err := retryWithBackoff(func() error {
			var err error
			a.sqlite, err = database.NewSQLite(cfg.SQLite)
			if err != nil {
				return err
			}
			if err := a.sqlite.Ping(ctx); err != nil {
				return err
			}
			a.Store = conversation.NewStore(a.sqlite.DB)
			return a.Store.Migrate(ctx)
		}, opts.ConnectAttempts, opts.InitialDelay, a.Logger, "SQLite conversation store")
		if err != nil {
			a.Logger.Warn("conversation store unavailable, turns will not be persisted", map[string]interface{}{"error": err.Error()})
			a.Store = nil
			if a.sqlite != nil {
				_ = a.sqlite.Close()
				a.sqlite = nil
			}
		}
	}
}

func (a *App) connectNotifications(ctx context.Context) error {
	n := a.Config.Notifications.AWS
	if n.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, n.Region, n.SNS.TopicARN)
		if err != nil {
			return fmt.Errorf("sns client: %w", err)
		}
		a.Alerter = client
	}
	if n.SES.Enabled {
		client, err := aws.NewSESClient(ctx, n.Region, n.SES.FromEmail)
		if err != nil {
			return fmt.Errorf("ses client: %w", err)
		}
		a.Mailer = client
	}
	return nil
}

func (a *App) wire() {
	cfg := a.Config
	log := a.Logger

	a.LLM = llm.New(llm.Config{
		BaseURL:     cfg.APIs.LLM.BaseURL,
		APIKey:      cfg.APIs.LLM.APIKey,
		Model:       cfg.APIs.LLM.Model,
		Timeout:     config.GetDuration(cfg.APIs.LLM.Timeout),
		MaxRetries:  cfg.APIs.LLM.MaxRetries,
		Temperature: cfg.APIs.LLM.Temperature,
		MaxTokens:   cfg.APIs.LLM.MaxTokens,
	}, nil, log)

	a.Google = google.NewClient(google.Config{
		APIKey:     cfg.APIs.Google.APIKey,
		PlacesURL:  cfg.APIs.Google.PlacesURL,
		RoutesURL:  cfg.APIs.Google.RoutesURL,
		WeatherURL: cfg.APIs.Google.WeatherURL,
		Latitude:   cfg.APIs.Google.Latitude,
		Longitude:  cfg.APIs.Google.Longitude,
		CacheSize:  cfg.APIs.Google.CacheSize,
		CacheTTL:   time.Duration(cfg.APIs.Google.CacheTTL) * time.Second,
	}, httpclient.NewClient(config.GetDuration(cfg.APIs.Google.Timeout)), log)

	a.Schedule = schedule.NewScraper(
		cfg.APIs.Schedule.BaseURL,
		cfg.APIs.Schedule.UserAgent,
		httpclient.NewClient(config.GetDuration(cfg.APIs.Schedule.Timeout)),
	)

	// nil stores must reach knowledge.New as untyped nils
	var searcher knowledge.Searcher
	if a.es != nil {
		searcher = a.es
	}
	var faq *sql.DB
	if a.postgres != nil {
		faq = a.postgres.DB
	}
	var cache redis.Cmdable
	if a.redis != nil {
		cache = a.redis.Client
	}
	a.Knowledge = knowledge.New(knowledge.Config{
		Index:      cfg.Pipeline.KnowledgeIndex,
		FAQTable:   cfg.Pipeline.FAQTable,
		MaxResults: cfg.Pipeline.MaxResults,
		CacheTTL:   time.Duration(cfg.Pipeline.CacheTTL) * time.Second,
	}, searcher, faq, cache, a.LLM, a.Prompts, log)

	a.Planner = createplan.NewHandler(a.workerConfigCreatePlan(), &createPlanLoggerAdapter{log})
	a.Retriever = retrieveevidence.NewHandler(a.workerConfigRetrieveEvidence(), retrieveevidence.Sources{
		Knowledge: a.Knowledge,
		Weather:   a.Google,
		Places:    a.Google,
		Schedule:  a.Schedule,
	}, &retrieveEvidenceLoggerAdapter{log})
	a.Synthesizer = synthesizeanswer.NewHandler(a.workerConfigSynthesizeAnswer(), a.LLM, a.Prompts, &synthesizeAnswerLoggerAdapter{log})
	a.Router = routequery.NewHandler(a.workerConfigRouteQuery(), a.LLM, a.Prompts, &routeQueryLoggerAdapter{log})
	a.ToolPlanner = plantools.NewHandler(a.workerConfigPlanTools(), plantools.Tools{
		Knowledge: a.Knowledge,
		Schedule:  a.Schedule,
		Google:    a.Google,
	}, a.LLM, a.Prompts, &planToolsLoggerAdapter{log})

	deps := assistant.Dependencies{
		Retriever:     a.Retriever,
		Synthesizer:   a.Synthesizer,
		Router:        a.Router,
		ToolPlanner:   a.ToolPlanner,
		Knowledge:     a.Knowledge,
		Observability: a.Observability,
		Logger:        log,
	}
	if a.Alerter != nil {
		deps.Alerter = a.Alerter
	}
	a.Service = assistant.NewService(deps, assistant.Options{
		AlertConfidenceThreshold: cfg.Pipeline.AlertConfidenceThreshold,
	})
}

// APIDependencies adapts the app to the HTTP layer, keeping nil components nil.
func (a *App) APIDependencies() api.Dependencies {
	deps := api.Dependencies{
		Assistant: a.Service,
		Evaluator: a.LLM,
		Ready:     map[string]api.ReadyCheck{},
		Logger:    a.Logger,
	}
	if a.Store != nil {
		deps.Store = a.Store
	}
	if a.Mailer != nil {
		deps.Mailer = a.Mailer
	}
	if a.redis != nil {
		deps.Ready["redis"] = a.redis.Ping
	}
	if a.sqlite != nil {
		deps.Ready["sqlite"] = a.sqlite.Ping
	}
	return deps
}

// APIConfig maps the server section onto the HTTP layer's config.
func (a *App) APIConfig() api.Config {
	return api.Config{
		APIKey:          a.Config.Server.APIKey,
		ModelName:       a.Config.Server.ModelName,
		EvaluateTimeout: config.GetDuration(a.Config.APIs.LLM.EvaluateTimeout),
	}
}

// Close releases every connected store.
func (a *App) Close() {
	closers := map[string]func() error{}
	if a.postgres != nil {
		closers["postgres"] = a.postgres.Close
	}
	if a.redis != nil {
		closers["redis"] = a.redis.Close
	}
	if a.sqlite != nil {
		closers["sqlite"] = a.sqlite.Close
	}
	for name, closeFn := range closers {
		if err := closeFn(); err != nil {
			a.Logger.Warn("failed to close store", map[string]interface{}{"store": name, "error": err.Error()})
		}
	}
}
