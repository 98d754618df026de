// Copyright 2022-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"os"

	"github.com/folioscope/folio-api/common"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Profile enables pprof CPU profiling for the duration of the
	// command
	Profile bool

	// Trace enables runtime execution tracing for the duration of the
	// command
	Trace bool
)

func init() {
	// FolioScope secret key
	viper.BindEnv("secret_key", "FS_SECRET")
	rootCmd.PersistentFlags().String("secret-key", "", "Secret encryption key")
	viper.BindPFlag("secret_key", rootCmd.PersistentFlags().Lookup("secret-key"))

	// AUTH0
	viper.BindEnv("auth0.secret", "AUTH0_SECRET")
	rootCmd.PersistentFlags().String("auth0-secret", "", "Auth0 secret")
	viper.BindPFlag("auth0.secret", rootCmd.PersistentFlags().Lookup("auth0-secret"))

	viper.BindEnv("auth0.client_id", "AUTH0_CLIENT_ID")
	rootCmd.PersistentFlags().String("auth0-client-id", "", "Auth0 client id")
	viper.BindPFlag("auth0.client_id", rootCmd.PersistentFlags().Lookup("auth0-client-id"))

	viper.BindEnv("auth0.domain", "AUTH0_DOMAIN")
	rootCmd.PersistentFlags().String("auth0-domain", "", "Auth0 domain")
	viper.BindPFlag("auth0.domain", rootCmd.PersistentFlags().Lookup("auth0-domain"))

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Redis
	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis connection string")
	viper.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("redis-url"))

	// Market data
	viper.BindEnv("benchmark.symbol", "FS_BENCHMARK")
	rootCmd.PersistentFlags().String("benchmark", "SPY", "Default benchmark symbol")
	viper.BindPFlag("benchmark.symbol", rootCmd.PersistentFlags().Lookup("benchmark"))

	// Analytics
	rootCmd.PersistentFlags().Float64("risk-free-rate", 0.02, "Annual risk free rate used for sharpe ratio")
	viper.BindPFlag("analytics.risk_free_rate", rootCmd.PersistentFlags().Lookup("risk-free-rate"))

	// Logging configuration
	viper.BindEnv("log.level", "FS_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "FS_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "FS_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "folioapi",
	Version: common.CurrentVersion.String(),
	Short:   "FolioScope analyzes and projects investment portfolios",
	Long:    `A portfolio analytics service that aligns price history, computes performance metrics, compares against a benchmark, and projects plausible futures with Monte Carlo simulation.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Stack().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
