// Copyright 2025 Printforge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/cache"
	"github.com/printforge/printforge/pkg/database"
	"github.com/printforge/printforge/pkg/http"
	"github.com/printforge/printforge/pkg/journal"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/metrics"
)

// EngineConfig tunes the order pipeline orchestrator.
type EngineConfig struct {
	MaxRetries                 int                `mapstructure:"maxRetries"`
	RetryDelaySeconds          int                `mapstructure:"retryDelaySeconds"`
	QualityCheckThresholdCents int64              `mapstructure:"qualityCheckThresholdCents"`
	StalenessMinutes           int                `mapstructure:"stalenessMinutes"`
	SweepSchedule              string             `mapstructure:"sweepSchedule"`
	RushPriority               bool               `mapstructure:"rushPriority"`
	StageEstimateHours         map[string]float64 `mapstructure:"stageEstimateHours"`
}

// SetDefaults applies default values to unset fields.
func (c *EngineConfig) SetDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelaySeconds == 0 {
		c.RetryDelaySeconds = 60
	}
	if c.QualityCheckThresholdCents == 0 {
		c.QualityCheckThresholdCents = 10000
	}
	if c.StalenessMinutes == 0 {
		c.StalenessMinutes = 24 * 60
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 5m"
	}
}

type AppConfig struct {
	Log      log.Conf              `mapstructure:"log"`
	Http     http.Http             `mapstructure:"http"`
	Database database.Database     `mapstructure:"database"`
	Redis    cache.Redis           `mapstructure:"redis"`
	Metrics  metrics.MetricsConfig `mapstructure:"metrics"`
	Queue    queue.Config          `mapstructure:"queue"`
	Journal  journal.Config        `mapstructure:"journal"`
	Engine   EngineConfig          `mapstructure:"engine"`
}

var (
	cfg  AppConfig
	mu   sync.RWMutex
	once sync.Once
)

func NewConf(confDir string) *AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return &cfg
}

// GetConfig returns the current configuration snapshot (hot reload safe).
func GetConfig() AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadConfigFile load config file
func LoadConfigFile(confDir string) (AppConfig, error) {

	config := viper.New()
	config.SetConfigFile(confDir)
	if err := config.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read configuration file: %v", err)
	}

	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		log.Infow("The configuration changes, re-analyze the configuration file", "file", e.Name)
		if err := config.ReadInConfig(); err != nil {
			log.Errorw("failed to re-read configuration file", "error", err, "file", e.Name)
			return
		}
		mu.Lock()
		if err := config.Unmarshal(&cfg); err != nil {
			mu.Unlock()
			log.Errorw("failed to unmarshal configuration file", "error", err, "file", e.Name)
			return
		}
		applyDefaults(&cfg)
		mu.Unlock()
		log.Infow("configuration reloaded successfully", "file", e.Name)
	})
	if err := config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}
	applyDefaults(&cfg)
	log.Infow("config file loaded",
		"path", confDir,
	)

	return cfg, nil
}

func applyDefaults(c *AppConfig) {
	c.Http.SetDefaults()
	c.Metrics.SetDefaults()
	c.Queue.SetDefaults()
	c.Engine.SetDefaults()
}
