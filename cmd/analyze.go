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
	"fmt"
	"os"
	"time"

	"github.com/folioscope/folio-api/common"
	"github.com/folioscope/folio-api/data"
	"github.com/folioscope/folio-api/portfolio"
	"github.com/folioscope/folio-api/simulation"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	analyzeSimulate bool
	analyzeYears    int
)

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSimulate, "simulate", false, "Also run a Monte Carlo projection")
	analyzeCmd.Flags().IntVar(&analyzeYears, "years", 10, "Projection horizon in years")
	rootCmd.AddCommand(analyzeCmd)
}

// holdingsFile is the TOML document the analyze command reads. Dates
// are local dates, e.g. purchase_date = 2020-01-02T00:00:00Z
type holdingsFile struct {
	Benchmark string `toml:"benchmark"`
	Holdings  []struct {
		Ticker       string    `toml:"ticker"`
		Shares       float64   `toml:"shares"`
		PurchaseDate time.Time `toml:"purchase_date"`
	} `toml:"holdings"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [holdings.toml]",
	Args:  cobra.ExactArgs(1),
	Short: "Compute performance metrics for a portfolio described in a TOML file",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()
		ctx := context.Background()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal().Stack().Err(err).Str("FileName", args[0]).Msg("could not read holdings file")
		}

		var doc holdingsFile
		if err := toml.Unmarshal(raw, &doc); err != nil {
			log.Fatal().Stack().Err(err).Str("FileName", args[0]).Msg("could not parse holdings file")
		}

		holdings := make([]portfolio.Holding, 0, len(doc.Holdings))
		for _, h := range doc.Holdings {
			holdings = append(holdings, portfolio.Holding{
				Ticker:       h.Ticker,
				Shares:       h.Shares,
				PurchaseDate: h.PurchaseDate,
			})
		}
		if err := portfolio.Validate(holdings); err != nil {
			log.Fatal().Stack().Err(err).Msg("holdings are invalid")
		}

		manager := data.NewManager()
		begin := portfolio.EarliestPurchase(holdings)
		prices, err := manager.PriceHistories(ctx, portfolio.Tickers(holdings), begin)
		if err != nil {
			log.Fatal().Stack().Err(err).Msg("could not fetch price history")
		}

		series, err := portfolio.BuildValueSeries(prices, holdings)
		if err != nil {
			log.Fatal().Stack().Err(err).Msg("could not build value series")
		}

		cfg := portfolio.DefaultConfig()
		asOf := time.Now()
		metrics := portfolio.CalculateMetrics(series, series.InitialInvestment(), begin, asOf, cfg)

		report := map[string]interface{}{
			"metrics": metrics,
		}

		benchPrices, err := benchmarkPrices(ctx, manager, doc.Benchmark, series.Begin())
		if err != nil {
			log.Warn().Stack().Err(err).Msg("benchmark unavailable; skipping comparison")
		} else if comparison, err := portfolio.CompareBenchmark(series, metrics, benchPrices, asOf, cfg); err != nil {
			log.Warn().Stack().Err(err).Msg("benchmark comparison failed")
		} else {
			report["comparison"] = comparison
		}

		if analyzeSimulate {
			engine := simulation.NewEngine(simulation.DefaultConfig())
			projection, err := engine.Project(ctx, series, analyzeYears)
			if err != nil {
				log.Fatal().Stack().Err(err).Msg("projection failed")
			}
			report["projection"] = projection
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatal().Stack().Err(err).Msg("could not serialize report")
		}
		fmt.Println(string(out))
	},
}

func benchmarkPrices(ctx context.Context, manager *data.Manager, symbol string, begin time.Time) (data.PriceSeries, error) {
	if symbol != "" {
		return manager.PriceHistory(ctx, symbol, begin)
	}
	return manager.Benchmark(ctx, begin)
}
