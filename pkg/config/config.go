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

// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/united-manufacturing-hub/umh-utils/env"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence/postgres"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	PublisherLog   = "log"
	PublisherKafka = "kafka"
	PublisherMQTT  = "mqtt"
	PublisherRedis = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the service configuration read from the environment.
type Config struct {
	Version   string
	SentryDSN string

	// RegistryFile is a YAML type registry. Empty selects the built-in one.
	RegistryFile string

	StoreDriver string
	SQLitePath  string
	Postgres    postgres.Config

	Publisher     string
	KafkaBrokers  []string
	MQTTBrokerURL string
	MQTTClientID  string
	RedisURI      string
	RedisPassword string
	RedisDB       int

	Exchange         string
	HistoryQueueSize int
	ResolverCacheTTL time.Duration

	HTTPAddr     string
	MetricsAddr  string
	HealthAddr   string
	DryRunHeader string
	ActorHeader  string
}

// Load reads every variable, applies defaults and validates the result.
func Load() (Config, error) {
	var (
		cfg Config
		err error
	)

	get := func(target *string, key, fallback string) {
		if err != nil {
			return
		}

		*target, err = env.GetAsString(key, false, fallback)
	}

	getInt := func(target *int, key string, fallback int) {
		if err != nil {
			return
		}

		*target, err = env.GetAsInt(key, false, fallback)
	}

	get(&cfg.Version, "VERSION", constants.DefaultAppVersion)
	get(&cfg.SentryDSN, "SENTRY_DSN", "")
	get(&cfg.RegistryFile, "REGISTRY_FILE", "")

	get(&cfg.StoreDriver, "STORE_DRIVER", StoreMemory)
	get(&cfg.SQLitePath, "SQLITE_PATH", "/data/relsync.db")
	get(&cfg.Postgres.Host, "POSTGRES_HOST", "localhost")
	getInt(&cfg.Postgres.Port, "POSTGRES_PORT", 5432)
	get(&cfg.Postgres.User, "POSTGRES_USER", "dams")
	get(&cfg.Postgres.Password, "POSTGRES_PASSWORD", "")
	get(&cfg.Postgres.Database, "POSTGRES_DATABASE", "dams")
	get(&cfg.Postgres.SSLMode, "POSTGRES_SSL_MODE", "disable")
	getInt(&cfg.Postgres.LRUSize, "POSTGRES_LRU_CACHE_SIZE", 128)

	var brokers string

	get(&cfg.Publisher, "PUBLISHER", PublisherLog)
	get(&brokers, "KAFKA_BROKERS", "")
	get(&cfg.MQTTBrokerURL, "MQTT_BROKER_URL", "")
	get(&cfg.MQTTClientID, "MQTT_CLIENT_ID", "dams-relsync")
	get(&cfg.RedisURI, "REDIS_URI", "")
	get(&cfg.RedisPassword, "REDIS_PASSWORD", "")
	getInt(&cfg.RedisDB, "REDIS_DB", 0)

	var ttlSeconds int

	get(&cfg.Exchange, "MQ_EXCHANGE", constants.DefaultExchange)
	getInt(&cfg.HistoryQueueSize, "HISTORY_QUEUE_SIZE", constants.DefaultHistoryQueueSize)
	getInt(&ttlSeconds, "RESOLVER_CACHE_TTL_SECONDS", int(constants.DefaultResolverCacheTTL/time.Second))

	get(&cfg.HTTPAddr, "HTTP_ADDR", ":8080")
	get(&cfg.MetricsAddr, "METRICS_ADDR", ":2112")
	get(&cfg.HealthAddr, "HEALTH_ADDR", ":8086")
	get(&cfg.DryRunHeader, "DRY_RUN_HEADER", "X-Dry-Run")
	get(&cfg.ActorHeader, "ACTOR_HEADER", "X-Actor")

	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.KafkaBrokers = splitList(brokers)
	cfg.ResolverCacheTTL = time.Duration(ttlSeconds) * time.Second

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the selected drivers have what they need.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for the sqlite store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch c.Publisher {
	case PublisherLog:
	case PublisherKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: KAFKA_BROKERS is required for the kafka publisher", ErrInvalidConfig)
		}
	case PublisherMQTT:
		if c.MQTTBrokerURL == "" {
			return fmt.Errorf("%w: MQTT_BROKER_URL is required for the mqtt publisher", ErrInvalidConfig)
		}
	case PublisherRedis:
		if c.RedisURI == "" {
			return fmt.Errorf("%w: REDIS_URI is required for the redis publisher", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown PUBLISHER %q", ErrInvalidConfig, c.Publisher)
	}

	if c.HistoryQueueSize <= 0 {
		return fmt.Errorf("%w: HISTORY_QUEUE_SIZE must be positive", ErrInvalidConfig)
	}

	if c.ResolverCacheTTL <= 0 {
		return fmt.Errorf("%w: RESOLVER_CACHE_TTL_SECONDS must be positive", ErrInvalidConfig)
	}

	return nil
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
