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

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Code pairs a business code with its default message.
type Code struct {
	Code int
	Msg  string
}

var (
	Success                       = Code{Code: 0, Msg: "success"}
	Failed                        = Code{Code: 10001, Msg: "internal error"}
	BadRequest                    = Code{Code: 10002, Msg: "bad request"}
	NotFound                      = Code{Code: 10003, Msg: "not found"}
	RequestParameterParsingFailed = Code{Code: 10004, Msg: "request parameter parsing failed"}
	Conflict                      = Code{Code: 10005, Msg: "conflict"}
)

// Rep is the envelope every JSON endpoint responds with.
type Rep struct {
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      any    `json:"data,omitempty"`
	Path      string `json:"path,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WithRep writes a success envelope with data.
func WithRep(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Rep{
		Code:      Success.Code,
		Msg:       Success.Msg,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// WithRepErrMsg writes an error envelope. The HTTP status stays 200, the
// business code carries the failure.
func WithRepErrMsg(c *fiber.Ctx, code int, msg, path string) error {
	return c.Status(fiber.StatusOK).JSON(Rep{
		Code:      code,
		Msg:       msg,
		Path:      path,
		Timestamp: time.Now().UnixMilli(),
	})
}
