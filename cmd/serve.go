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
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/folioscope/folio-api/common"
	"github.com/folioscope/folio-api/data"
	"github.com/folioscope/folio-api/database"
	"github.com/folioscope/folio-api/handler"
	"github.com/folioscope/folio-api/jwks"
	"github.com/folioscope/folio-api/middleware"
	"github.com/folioscope/folio-api/observability/opentelemetry"
	"github.com/folioscope/folio-api/router"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	serveCmd.Flags().String("cors-origins", "http://localhost:8080", "Allowed CORS origins")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the folio-api server",
	Long:  `Run HTTP server that implements the FolioScope API`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile output")
			}
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()
		common.SetupCache()
		log.Info().Msg("initialized logging")

		shutdownTracer, err := opentelemetry.Setup()
		if err != nil {
			log.Error().Stack().Err(err).Msg("could not setup tracing")
		}
		defer func() {
			if shutdownTracer != nil {
				if err := shutdownTracer(context.Background()); err != nil {
					log.Error().Stack().Err(err).Msg("tracer shutdown failed")
				}
			}
		}()

		// setup database
		if err := database.Connect(context.Background()); err != nil {
			log.Fatal().Stack().Err(err).Msg("could not connect to database")
		}

		// initialize market data framework
		manager := data.NewManager()
		handler.SetDataManager(manager)
		log.Info().Msg("initialized data framework")

		app := fiber.New()

		// shutdown cleanly on interrupt
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt)
		go func() {
			sig := <-quit // block until signal is read
			log.Info().Str("Signal", sig.String()).Msg("shutting down")
			if err := app.Shutdown(); err != nil {
				log.Fatal().Stack().Err(err).Msg("app shutdown failed")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}
		app.Use(cors.New(corsConfig))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Configure authentication
		jwksAutoRefresh, jwksURL := jwks.SetupJWKS()

		// Setup routes
		router.SetupRoutes(app, jwksAutoRefresh, jwksURL)

		// keep the benchmark cache warm so comparisons don't block on
		// the upstream provider
		scheduler := gocron.NewScheduler(common.GetTimezone())
		scheduler.Every(1).Hours().Do(func() {
			begin := time.Now().AddDate(-10, 0, 0)
			if _, err := manager.Benchmark(context.Background(), begin); err != nil {
				log.Warn().Stack().Err(err).Msg("benchmark cache refresh failed")
			}
		})
		scheduler.StartAsync()

		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Stack().Err(err).Msg("server exited")
		}
	},
}
