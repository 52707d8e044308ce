package commands

import (
	"fmt"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/data/repos"
	"github.com/manoharb30/insight-lookinsight/internal/dedup"
	"github.com/manoharb30/insight-lookinsight/internal/evidence"
	"github.com/manoharb30/insight-lookinsight/internal/external/edgar"
	"github.com/manoharb30/insight-lookinsight/internal/external/openai"
	"github.com/manoharb30/insight-lookinsight/internal/pipeline"
	"github.com/manoharb30/insight-lookinsight/internal/score"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/internal/validate"
	"github.com/manoharb30/insight-lookinsight/pkg/config"
	"github.com/manoharb30/insight-lookinsight/pkg/database"
	"github.com/manoharb30/insight-lookinsight/pkg/httputil"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
	"github.com/manoharb30/insight-lookinsight/pkg/redis"
)

// stack is the fully wired application: one place assembles the
// dependencies, every command borrows from it.
type stack struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	cache       *redis.Client
	signals     *repos.SignalRepository
	assessments *repos.AssessmentRepository
	pipe        *pipeline.Pipeline
	analyzer    *pipeline.Analyzer
}

// close releases the stack's connections.
func (s *stack) close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
}

// buildStack assembles the application from config. Redis is optional;
// OpenAI-backed tiers are wired only when enabled.
func buildStack() (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	tables := signalconfig.Default()
	if err := signalconfig.Validate(tables); err != nil {
		return nil, fmt.Errorf("signal tables: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		// Redis only caches; the pipeline works without it.
		log.WithError(err).Warn("Redis unavailable, running without cache")
		redisClient = nil
	}
	var filingCache *redis.Cache
	if redisClient != nil && redisClient.Enabled() {
		filingCache = redis.NewCache(redisClient, "radar")
	}

	edgarClient := httputil.New(cfg, log).WithHeader("User-Agent", cfg.EDGAR.UserAgent)
	openaiHTTP := httputil.New(cfg, log).WithHeader("Authorization", "Bearer "+cfg.OpenAI.APIKey)
	if redisClient != nil && redisClient.Enabled() {
		// Shared limiters keep concurrent radar processes under the
		// external APIs' ceilings together.
		limiter := redis.NewRateLimiter(redisClient, "radar")

		edgarLimit := redis.EDGARRateLimit
		if cfg.EDGAR.RatePerSecond > 0 {
			edgarLimit.Limit = int(cfg.EDGAR.RatePerSecond)
		}
		edgarClient = edgarClient.WithRateLimiter(limiter, edgarLimit)
		openaiHTTP = openaiHTTP.WithRateLimiter(limiter, redis.OpenAIRateLimit)
	}
	catalog := edgar.NewSource(cfg, edgarClient, filingCache, log)

	openaiClient := openai.NewClient(cfg, openaiHTTP, log)

	var searcher contracts.EmbeddingSearcher
	if cfg.OpenAI.Enabled && cfg.Pipeline.SemanticTier {
		searcher = openai.NewSearcher(openaiClient, catalog, log)
	}
	var checker contracts.ClassificationChecker
	if cfg.OpenAI.Enabled && cfg.Pipeline.ExternalCheck {
		checker = openai.NewChecker(openaiClient, log)
	}

	signalRepo := repos.NewSignalRepository(db.Pool)
	assessmentRepo := repos.NewAssessmentRepository(db.Pool)

	pipe := pipeline.New(
		evidence.NewLocator(searcher, tables, log),
		evidence.NewFilter(tables, log),
		dedup.New(tables, log),
		validate.NewValidator(tables, checker, log, cfg.OpenAI.MaxConcurrent),
		score.NewScorer(tables, log),
		log,
		pipeline.Options{
			Signals:       signalRepo,
			Assessments:   assessmentRepo,
			MaxConcurrent: cfg.Pipeline.MaxConcurrentDocs,
		},
	)

	analyzer := pipeline.NewAnalyzer(catalog, openai.NewExtractor(openaiClient, log), pipe, log, cfg.Pipeline.MaxConcurrentDocs)

	return &stack{
		cfg:         cfg,
		log:         log,
		db:          db,
		cache:       redisClient,
		signals:     signalRepo,
		assessments: assessmentRepo,
		pipe:        pipe,
		analyzer:    analyzer,
	}, nil
}
