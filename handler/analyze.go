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

package handler

import (
	"context"
	"time"

	"github.com/folioscope/folio-api/data"
	"github.com/folioscope/folio-api/portfolio"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AnalyzeRequest is the body of POST /v1/analyze
type AnalyzeRequest struct {
	Holdings  []portfolio.Holding `json:"holdings"`
	Benchmark string              `json:"benchmark"`
}

// AnalyzeResponse carries the computed metrics, the aligned value
// series and the benchmark comparison. When the benchmark cannot be
// evaluated the comparison is omitted and comparisonError explains why.
type AnalyzeResponse struct {
	Metrics         portfolio.Metrics     `json:"metrics"`
	Comparison      *portfolio.Comparison `json:"comparison,omitempty"`
	ComparisonError string                `json:"comparisonError,omitempty"`
	Values          portfolio.ValueSeries `json:"values"`
}

// Analyze computes performance metrics for an ad-hoc set of holdings
func Analyze(c *fiber.Ctx) error {
	ctx := context.Background()

	var req AnalyzeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warn().Stack().Err(err).Msg("could not deserialize analyze request")
		return fiber.ErrBadRequest
	}

	if err := portfolio.Validate(req.Holdings); err != nil {
		return apiError(c, err)
	}

	resp, err := analyzeHoldings(ctx, req)
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(resp)
}

func analyzeHoldings(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	manager := getDataManager()

	begin := portfolio.EarliestPurchase(req.Holdings)
	asOf := time.Now()

	prices, err := manager.PriceHistories(ctx, portfolio.Tickers(req.Holdings), begin)
	if err != nil {
		return nil, err
	}

	series, err := portfolio.BuildValueSeries(prices, req.Holdings)
	if err != nil {
		return nil, err
	}

	cfg := portfolio.DefaultConfig()
	metrics := portfolio.CalculateMetrics(series, series.InitialInvestment(), begin, asOf, cfg)

	resp := &AnalyzeResponse{
		Metrics: metrics,
		Values:  series,
	}

	var benchPrices data.PriceSeries
	if req.Benchmark != "" {
		benchPrices, err = manager.PriceHistory(ctx, req.Benchmark, series.Begin())
	} else {
		benchPrices, err = manager.Benchmark(ctx, series.Begin())
	}
	if err != nil {
		log.Warn().Stack().Err(err).Str("Benchmark", req.Benchmark).
			Msg("benchmark prices unavailable; omitting comparison")
		resp.ComparisonError = err.Error()
		return resp, nil
	}

	comparison, err := portfolio.CompareBenchmark(series, metrics, benchPrices, asOf, cfg)
	if err != nil {
		log.Warn().Stack().Err(err).Str("Benchmark", req.Benchmark).
			Msg("benchmark comparison failed; omitting comparison")
		resp.ComparisonError = err.Error()
		return resp, nil
	}

	resp.Comparison = &comparison
	return resp, nil
}
