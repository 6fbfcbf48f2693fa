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

package queue

// Config defines the dispatcher and worker behavior.
type Config struct {
	Namespace          string `mapstructure:"namespace"`
	Concurrency        int    `mapstructure:"concurrency"`
	PollTimeoutSeconds int    `mapstructure:"pollTimeoutSeconds"`
	MoverIntervalMs    int    `mapstructure:"moverIntervalMs"`
	DefaultMaxAttempts int    `mapstructure:"defaultMaxAttempts"`
	RetryDelaySeconds  int    `mapstructure:"retryDelaySeconds"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "printforge"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.PollTimeoutSeconds == 0 {
		c.PollTimeoutSeconds = 5
	}
	if c.MoverIntervalMs == 0 {
		c.MoverIntervalMs = 1000
	}
	if c.DefaultMaxAttempts == 0 {
		c.DefaultMaxAttempts = 3
	}
	if c.RetryDelaySeconds == 0 {
		c.RetryDelaySeconds = 60
	}
}
