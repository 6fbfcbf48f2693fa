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

import "fmt"

const (
	// TypeMySQL selects the MySQL backend.
	TypeMySQL = "mysql"
	// TypeSQLite selects the embedded SQLite backend (single node / tests).
	TypeSQLite = "sqlite"
)

// tablePrefix is applied to tables without an explicit TableName.
const tablePrefix = "t_"

// MySQLConfig defines MySQL connection configuration.
type MySQLConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	DBName   string   `mapstructure:"dbName"`
	Replicas []string `mapstructure:"replicas"` // optional read-replica DSNs
}

// SQLiteConfig defines SQLite configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// Database defines database configuration.
type Database struct {
	Type            string       `mapstructure:"type"`
	OutPut          bool         `mapstructure:"output"` // log SQL statements
	MaxOpenConns    int          `mapstructure:"maxOpenConns"`
	MaxIdleConns    int          `mapstructure:"maxIdleConns"`
	ConnMaxLifetime int          `mapstructure:"connMaxLifetime"` // seconds
	MySQL           MySQLConfig  `mapstructure:"mysql"`
	SQLite          SQLiteConfig `mapstructure:"sqlite"`
}

// SetDefaults applies default values to unset fields.
func (d *Database) SetDefaults() {
	if d.Type == "" {
		d.Type = TypeMySQL
	}
	if d.MaxOpenConns <= 0 {
		d.MaxOpenConns = 50
	}
	if d.MaxIdleConns <= 0 {
		d.MaxIdleConns = 10
	}
	if d.ConnMaxLifetime <= 0 {
		d.ConnMaxLifetime = 3600
	}
	if d.MySQL.Host == "" {
		d.MySQL.Host = "127.0.0.1"
	}
	if d.MySQL.Port == 0 {
		d.MySQL.Port = 3306
	}
	if d.SQLite.Path == "" {
		d.SQLite.Path = "./data/printforge.db"
	}
}

func buildMySQLDSN(c MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
