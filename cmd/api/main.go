package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qazna-labs/recordvault/internal/auth"
	"github.com/qazna-labs/recordvault/internal/config"
	"github.com/qazna-labs/recordvault/internal/csvstream"
	"github.com/qazna-labs/recordvault/internal/entitlement"
	"github.com/qazna-labs/recordvault/internal/httpapi"
	"github.com/qazna-labs/recordvault/internal/ingest"
	"github.com/qazna-labs/recordvault/internal/obs"
	"github.com/qazna-labs/recordvault/internal/prune"
	"github.com/qazna-labs/recordvault/internal/queryengine"
	"github.com/qazna-labs/recordvault/internal/store/pg"
)

var version = "0.1.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIT_COMMIT"))
	logger := obs.Logger()
	defer obs.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBAcquireConnectionTimeout)
	st, err := pg.Open(ctx, cfg.DatabaseURL, cfg.DBPoolMinConn, cfg.DBPoolMaxConn, cfg.DBAcquireConnectionTimeout)
	cancel()
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer st.Close()

	signer := auth.NewSigner(cfg.SigningPrivateKey, cfg.SigningPublicKey)
	authSvc := auth.NewService(st.Users(), st.ApiKeys(), signer, cfg.TokenExpiration, cfg.TokenAPIKeyExpiration, cfg.MaxAPIKeysPerUser)
	resolver := entitlement.New(st.Entitlements(), cfg.TemporalDeleteHours)
	ingestPipeline := ingest.New(st, resolver, cfg.BulkInsertChunkSize)
	queryEngine := queryengine.New(st, resolver, cfg.DefaultPaginationSize, cfg.MaxPaginationSize, cfg.ReturnQueryCount)
	csvPipeline := csvstream.New(st, resolver, cfg.CSVStreamWorkers, cfg.CSVTransformWorkers, cfg.CSVWorkerQueueDepth)
	csvLimiter := csvstream.NewLimiter(cfg.MaxStreamsPerUser)

	api := httpapi.New(httpapi.Deps{
		Store:      st,
		AuthSvc:    authSvc,
		Resolver:   resolver,
		Ingest:     ingestPipeline,
		Query:      queryEngine,
		CSV:        csvPipeline,
		CSVLimiter: csvLimiter,
		Config:     cfg,
	}, version)

	var pruneCancel context.CancelFunc
	if cfg.EnablePruneJob {
		var pruneCtx context.Context
		pruneCtx, pruneCancel = context.WithCancel(context.Background())
		job := prune.New(st.UploadSessions(), cfg.PruneJobRunInterval, cfg.PruneJobTimeout, cfg.UploadSessionRetention, cfg.PruneBatchSize, logger)
		go job.Run(pruneCtx)
	}

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting recordvault-api", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	if pruneCancel != nil {
		pruneCancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
