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

package database

import (
	"context"
	"errors"
	"time"

	"github.com/printforge/printforge/pkg/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormLoggerAdapter routes gorm logs into pkg/log.
type gormLoggerAdapter struct {
	cfg   gormlogger.Config
	level gormlogger.LogLevel
}

// NewGormLoggerAdapter creates a gorm logger backed by the engine logger.
func NewGormLoggerAdapter(cfg gormlogger.Config, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{cfg: cfg, level: level}
}

func (l *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLoggerAdapter) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		log.Infow("gorm", "msg", msg, "data", data)
	}
}

func (l *gormLoggerAdapter) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		log.Warnw("gorm", "msg", msg, "data", data)
	}
}

func (l *gormLoggerAdapter) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		log.Errorw("gorm", "msg", msg, "data", data)
	}
}

func (l *gormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	switch {
	case err != nil && !(l.cfg.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound)):
		log.Errorw("gorm query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold:
		log.Warnw("gorm slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.level >= gormlogger.Info:
		log.Debugw("gorm query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
