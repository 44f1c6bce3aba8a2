package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/securedrop/trustchain/cache"
	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/server"
	"github.com/securedrop/trustchain/store"
	"github.com/securedrop/trustchain/submission"
	"github.com/securedrop/trustchain/telemetry"
	"github.com/securedrop/trustchain/trust"
	"github.com/securedrop/trustchain/version"
)

const (
	cacheCleanupInterval = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
)

var (
	runPort        int
	runMetricsPort int
	runStoreEngine string
	runDataDir     string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "start the journalist key submission endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := prepare(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), config, exitSignal())
		},
	}
)

func init() {
	runCmd.Flags().IntVar(&runPort, "port", 8000, "server port to listen on")
	runCmd.Flags().IntVar(&runMetricsPort, "metrics-port", defaultMetricsPort, "metrics endpoint http port. Metrics are accessible under host:metrics-port/metrics")
	runCmd.Flags().StringVar(&runStoreEngine, "store-engine", "", "accepted journalist store engine (sqlite, postgres, mysql). Defaults to TRUSTCHAIN_STORE_ENGINE or sqlite")
	runCmd.Flags().StringVar(&runDataDir, "datadir", "", "directory of the sqlite journalist store. Defaults to the key directory")
}

// runServer serves the API until stop is closed or the server fails
func runServer(ctx context.Context, config *Config, stop <-chan struct{}) error {
	keys, err := keystore.NewFileStore(config.Keys.Dir)
	if err != nil {
		return fmt.Errorf("open key directory: %w", err)
	}

	if *config.Keys.VerifyRoot {
		if err := trust.VerifyRootIntermediate(ctx, keys); err != nil {
			return fmt.Errorf("stored intermediate is not usable, run init first: %w", err)
		}
	}

	appMetrics, err := telemetry.NewDefaultAppMetrics(ctx)
	if err != nil {
		return err
	}
	if config.Server.MetricsPort > 0 {
		if err := appMetrics.Expose(ctx, config.Server.MetricsPort, "/metrics"); err != nil {
			return fmt.Errorf("failed to expose metrics: %w", err)
		}
		defer appMetrics.Close() //nolint
	}

	cacheStore, err := cache.NewStore(ctx, config.Keys.CacheTTL, cacheCleanupInterval)
	if err != nil {
		return fmt.Errorf("create key cache: %w", err)
	}

	verifier := trust.NewVerifier(keys, cacheStore,
		trust.WithLoadTimeout(config.Keys.LoadTimeout),
		trust.WithCacheTTL(config.Keys.CacheTTL),
		trust.WithRootCheck(*config.Keys.VerifyRoot),
		trust.WithMetrics(appMetrics.KeyCacheMetrics()),
	)

	intermediate, err := verifier.IntermediateKey(ctx)
	if err != nil {
		return fmt.Errorf("load intermediate key: %w", err)
	}
	log.WithContext(ctx).Infof("trustchain %s accepting journalists signed by intermediate %s", version.TrustchainVersion(), intermediate)
	if !version.IsRelease() {
		log.WithContext(ctx).Warnf("trustchain %s is not a tagged release", version.TrustchainVersion())
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if *config.Keys.Watch {
		if err := trust.WatchIntermediate(watchCtx, keys, verifier); err != nil {
			log.WithContext(ctx).Warnf("not watching the key directory, relying on the cache TTL: %v", err)
		}
	}

	journalists, err := store.NewStore(ctx, store.Engine(config.Store.Engine), config.Store.DataDir, config.Store.DSN)
	if err != nil {
		return fmt.Errorf("open journalist store: %w", err)
	}
	defer func() {
		if err := journalists.Close(ctx); err != nil {
			log.WithContext(ctx).Warnf("failed closing journalist store: %v", err)
		}
	}()

	var rateLimiter *server.RateLimiter
	if config.Server.SubmissionsPerMinute > 0 {
		rateLimiter = server.NewRateLimiter(&server.RateLimiterConfig{
			RequestsPerMinute: config.Server.SubmissionsPerMinute,
			Burst:             config.Server.SubmissionBurst,
			CleanupInterval:   5 * time.Minute,
			LimiterTTL:        10 * time.Minute,
			TrustForwardedFor: config.Server.TrustForwardedFor,
		})
	}

	validator := submission.NewValidator(verifier, journalists, appMetrics.SubmissionMetrics())

	handler, err := server.APIHandler(validator, appMetrics, rateLimiter)
	if err != nil {
		return fmt.Errorf("failed creating HTTP API handler: %w", err)
	}

	srv := server.NewServer(config.Server.ListenAddress, handler)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		select {
		case <-stop:
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	err = g.Wait()
	log.WithContext(ctx).Info("stopped trustchain server")
	return err
}
