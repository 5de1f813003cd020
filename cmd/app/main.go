package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/invoicevision/internal/ai"
	cfgpkg "github.com/local/invoicevision/internal/config"
	"github.com/local/invoicevision/internal/limiter"
	"github.com/local/invoicevision/internal/llmclient"
	logpkg "github.com/local/invoicevision/internal/logger"
	"github.com/local/invoicevision/internal/metrics"
	"github.com/local/invoicevision/internal/queue"
	"github.com/local/invoicevision/internal/statuscheck"
	"github.com/local/invoicevision/internal/storage"
	"github.com/local/invoicevision/internal/store"
	"github.com/local/invoicevision/internal/web"
	"github.com/local/invoicevision/internal/worker"
	"github.com/local/invoicevision/internal/workflow"

	"github.com/local/invoicevision/internal/extract"
	"github.com/local/invoicevision/internal/render"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	var provider ai.Client
	switch strings.ToLower(cfg.Provider.Engine) {
	case "anthropic":
		provider = ai.NewAnthropicClient()
	default:
		provider = ai.NewOpenAIClient()
	}

	lim := limiter.New(cfg.Provider.MaxInflightPerModel)
	llm := llmclient.New(provider, llmclient.Config{
		Model:          cfg.Provider.Model,
		MaxTokens:      cfg.Provider.MaxTokens,
		RequestTimeout: cfg.Provider.RequestTimeout,
		TotalBudget:    cfg.Provider.TotalBudget,
		MaxAttempts:    cfg.Provider.MaxAttempts,
		BaseDelay:      cfg.Provider.RetryBaseDelay,
		BackoffFactor:  cfg.Provider.RetryBackoffFactor,
		Jitter:         cfg.Provider.RetryJitter,
	}, lim)

	var template string
	if cfg.Prompt.TemplateFile != "" {
		b, err := os.ReadFile(cfg.Prompt.TemplateFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Prompt.TemplateFile).Msg("read prompt template")
		}
		template = string(b)
	}

	wf, err := workflow.New(llm, workflow.Options{
		Template: template,
		Fields:   cfg.Prompt.Fields,
		Render: render.Options{
			DPI:         cfg.Render.DPI,
			JPEGQuality: cfg.Render.JPEGQuality,
			AllPages:    cfg.Render.AllPages,
			MaxPages:    cfg.Render.MaxPages,
			Concurrency: cfg.Render.Concurrency,
		},
		Extract: extract.Options{
			DayFirst:      cfg.Extract.DayFirst,
			Tolerance:     cfg.Extract.Tolerance,
			MaxFutureDays: cfg.Extract.MaxFutureDays,
		},
		PageWorkers: cfg.Worker.PageWorkers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("workflow init")
	}

	// Redis is optional: without it the service runs sync-only.
	var rq *queue.RedisQueue
	var rs *store.RedisStatus
	if rq, err = queue.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group, cfg.Queue.DLQStream); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, async endpoints disabled")
		rq = nil
	} else {
		defer rq.Close()
		if rs, err = store.NewRedisStatus(cfg.Queue.RedisURL, cfg.Queue.ResultTTL); err != nil {
			log.Warn().Err(err).Msg("status store unavailable, async endpoints disabled")
			rq = nil
		} else {
			defer rs.Close()
		}
	}

	var s3cli *storage.S3Client
	if cfg.Storage.Bucket != "" {
		if s3cli, err = storage.NewS3Client(context.Background(), cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.ResultPrefix); err != nil {
			log.Warn().Err(err).Msg("s3 unavailable, source_ref jobs will fail")
			s3cli = nil
		}
	}

	checker := statuscheck.New(statuscheck.Options{
		Redis:        redisPinger(rq),
		S3Bucket:     cfg.Storage.Bucket,
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
	})

	ws := &web.Server{
		Workflow:    wf,
		Queue:       rq,
		Status:      rs,
		Checker:     checker,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	}
	mux := ws.Routes()
	mux.Handle("GET /metrics", metrics.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Worker.Enabled && rq != nil && rs != nil {
		pool := &worker.Pool{
			Queue:       rq,
			Status:      rs,
			Workflow:    wf,
			Concurrency: cfg.Worker.Concurrency,
			Poll:        cfg.Queue.PollInterval,
		}
		if s3cli != nil {
			pool.Fetch = s3cli
			pool.Sink = s3cli
		}
		go pool.Run(ctx)
		log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("worker pool started")
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	log.Info().Msg("shutdown complete")
}

// redisPinger adapts a possibly-nil queue to the checker interface.
func redisPinger(q *queue.RedisQueue) statuscheck.RedisPinger {
	if q == nil {
		return nil
	}
	return q
}
