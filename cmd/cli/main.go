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

package main

import (
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/printforge/printforge/pkg/version"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	brandId    string
)

var rootCmd = &cobra.Command{
	Use:   "printforge-cli",
	Short: "printforge cli is a command line tool for the order pipeline engine",
	Long:  "printforge cli is a command line tool for the order pipeline engine",
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			return
		}
	},
}

func client() *resty.Client {
	return resty.New().SetBaseURL(serverAddr)
}

// call performs one API request and prints the raw envelope.
func call(fn func(c *resty.Client) (*resty.Response, error)) error {
	resp, err := fn(client())
	if err != nil {
		return err
	}
	fmt.Println(resp.String())
	return nil
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "order operations",
}

var orderProcessCmd = &cobra.Command{
	Use:   "process <orderId>",
	Short: "create and start a pipeline for an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skipRender, _ := cmd.Flags().GetBool("skip-render")
		skipProduction, _ := cmd.Flags().GetBool("skip-production")
		rush, _ := cmd.Flags().GetBool("rush")
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetBody(map[string]any{
					"brandId":        brandId,
					"skipRender":     skipRender,
					"skipProduction": skipProduction,
					"rushOrder":      rush,
				}).
				Post("/api/v1/orders/" + args[0] + "/process")
		})
	},
}

var orderStatusCmd = &cobra.Command{
	Use:   "status <orderId>",
	Short: "show an order with its pipeline state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetQueryParam("brandId", brandId).
				Get("/api/v1/orders/" + args[0])
		})
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "pipeline operations",
}

var pipelineStatusCmd = &cobra.Command{
	Use:   "status <pipelineId>",
	Short: "show pipeline stages, transitions and open errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetQueryParam("brandId", brandId).
				Get("/api/v1/pipelines/" + args[0])
		})
	},
}

var pipelineAdvanceCmd = &cobra.Command{
	Use:   "advance <pipelineId>",
	Short: "advance a pipeline to its next (or a target) stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetBody(map[string]any{"targetStage": target}).
				Post("/api/v1/pipelines/" + args[0] + "/advance")
		})
	},
}

var pipelineRetryCmd = &cobra.Command{
	Use:   "retry <pipelineId>",
	Short: "retry the current stage of a failed pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().Post("/api/v1/pipelines/" + args[0] + "/retry")
		})
	},
}

var pipelineRollbackCmd = &cobra.Command{
	Use:   "rollback <pipelineId>",
	Short: "roll a pipeline back to an earlier stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetBody(map[string]any{"targetStage": target}).
				Post("/api/v1/pipelines/" + args[0] + "/rollback")
		})
	},
}

var pipelineCancelCmd = &cobra.Command{
	Use:   "cancel <pipelineId>",
	Short: "cancel a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetBody(map[string]any{"reason": reason}).
				Post("/api/v1/pipelines/" + args[0] + "/cancel")
		})
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "dashboard queries",
}

var dashboardStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show aggregate pipeline stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetQueryParam("brandId", brandId).
				Get("/api/v1/dashboard/stats")
		})
	},
}

var dashboardAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "show recent pipeline error alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return call(func(c *resty.Client) (*resty.Response, error) {
			return c.R().
				SetQueryParam("brandId", brandId).
				SetQueryParam("limit", fmt.Sprintf("%d", limit)).
				Get("/api/v1/dashboard/alerts")
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:8080", "engine API address")
	rootCmd.PersistentFlags().StringVar(&brandId, "brand", "", "brand id for tenant-scoped queries")

	orderProcessCmd.Flags().Bool("skip-render", false, "skip the render stage")
	orderProcessCmd.Flags().Bool("skip-production", false, "skip the production stage")
	orderProcessCmd.Flags().Bool("rush", false, "mark the order as rush")
	orderCmd.AddCommand(orderProcessCmd, orderStatusCmd)

	pipelineAdvanceCmd.Flags().String("target", "", "target stage id")
	pipelineRollbackCmd.Flags().String("target", "", "target stage id")
	pipelineCancelCmd.Flags().String("reason", "", "cancellation reason")
	pipelineCmd.AddCommand(pipelineStatusCmd, pipelineAdvanceCmd, pipelineRetryCmd, pipelineRollbackCmd, pipelineCancelCmd)

	dashboardAlertsCmd.Flags().Int("limit", 20, "max alerts to return")
	dashboardCmd.AddCommand(dashboardStatsCmd, dashboardAlertsCmd)

	rootCmd.AddCommand(orderCmd, pipelineCmd, dashboardCmd, version.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
