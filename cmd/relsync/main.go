// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/api"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/config"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/crud"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/history"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/hooks"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/logger"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence/memory"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence/postgres"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence/sqlite"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/registry"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/resolver"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/sentry"
)

const (
	shutdownTimeout = 30 * time.Second
	kafkaClientID   = "dams-relsync"
)

// healthChecker is implemented by every history publisher.
type healthChecker interface {
	Check() error
}

func main() {
	logger.Initialize()
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.For(logger.ComponentCore)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sentry.InitSentry(cfg.Version, cfg.SentryDSN)
	log.Infof("Starting relsync %s", cfg.Version)

	rules, err := loadRegistry(cfg.RegistryFile)
	if err != nil {
		sentry.ReportIssue(err, sentry.IssueTypeFatal, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		sentry.ReportIssue(err, sentry.IssueTypeFatal, log)
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		sentry.ReportIssue(err, sentry.IssueTypeFatal, log)
	}

	recorder := history.NewRecorder(publisher, cfg.Exchange, cfg.HistoryQueueSize, logger.For(logger.ComponentHistory))
	locations := resolver.New(rules.Collections(), cfg.ResolverCacheTTL, constants.DefaultResolverCullPeriod)

	service := crud.NewService(store, rules, locations, logger.For(logger.ComponentCRUD))
	service.SetHooks(hooks.NewOrchestrator(service, locations, rules, recorder, constants.DefaultActor, logger.For(logger.ComponentHooks)))

	router := api.NewRouter(service, api.Options{
		DryRunHeader: cfg.DryRunHeader,
		ActorHeader:  cfg.ActorHeader,
	}, zap.L().Named(logger.ComponentAPI))

	servers := []*http.Server{
		api.NewServer(cfg.HTTPAddr, router),
		api.NewServer(cfg.HealthAddr, newHealthHandler(store, publisher)),
	}

	metricsServer := metrics.SetupMetricsEndpoint(cfg.MetricsAddr)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, server := range servers {
		group.Go(func() error {
			log.Infof("Listening on %s", server.Addr)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s failed: %w", server.Addr, err)
			}

			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		log.Infof("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, server := range append(servers, metricsServer) {
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warnf("Failed to shut down server on %s: %v", server.Addr, err)
			}
		}

		if err := recorder.Close(shutdownCtx); err != nil {
			log.Warnf("Failed to drain history events: %v", err)
		}

		return store.Close(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		sentry.ReportIssue(err, sentry.IssueTypeError, log)
		sentry.Flush(5 * time.Second)
		os.Exit(1)
	}

	sentry.Flush(5 * time.Second)
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}

	return registry.Load(path)
}

func openStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case config.StorePostgres:
		return postgres.NewStore(ctx, cfg.Postgres)
	default:
		return memory.NewInMemoryStore(), nil
	}
}

func openPublisher(cfg config.Config) (history.Publisher, error) {
	log := logger.For(logger.ComponentPublisher)

	switch cfg.Publisher {
	case config.PublisherKafka:
		return history.NewKafkaPublisher(cfg.KafkaBrokers, kafkaClientID)
	case config.PublisherMQTT:
		return history.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID, log)
	case config.PublisherRedis:
		return history.NewRedisPublisher(cfg.RedisURI, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return history.NewLogPublisher(log), nil
	}
}

func newHealthHandler(store persistence.Store, publisher history.Publisher) healthcheck.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(100000))

	health.AddReadinessCheck("store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		return store.Ping(ctx)
	})

	if checker, ok := publisher.(healthChecker); ok {
		health.AddReadinessCheck("publisher", checker.Check)
	}

	return health
}
