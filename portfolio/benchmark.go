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

package portfolio

import (
	"time"

	"github.com/folioscope/folio-api/data"
	"gonum.org/v1/gonum/stat"
)

// Comparison reports portfolio performance relative to a benchmark
// index.
//
// Beta is a measure of the volatility (systematic risk) of the
// portfolio compared to the market as a whole. When benchmark variance
// is zero or the overlapping data is too short, Beta carries the
// configured fallback value and BetaIsFallback is set; callers must
// not present a fallback beta as a measured one.
type Comparison struct {
	PortfolioReturn float64 `json:"portfolioReturn"`
	BenchmarkReturn float64 `json:"benchmarkReturn"`
	Alpha           float64 `json:"alpha"`
	Beta            float64 `json:"beta"`
	BetaIsFallback  bool    `json:"betaIsFallback"`
	Outperforming   bool    `json:"outperforming"`
}

// CompareBenchmark computes alpha, beta, and relative return of the
// portfolio against the benchmark close-price series.
//
// Returns ErrBenchmarkUnavailable when the benchmark has fewer than 2
// points; the caller should surface "comparison not available" while
// the portfolio's own metrics still stand.
func CompareBenchmark(series ValueSeries, metrics Metrics, benchmark data.PriceSeries, asOf time.Time, cfg Config) (Comparison, error) {
	if len(benchmark) < 2 {
		return Comparison{}, ErrBenchmarkUnavailable
	}

	// benchmark return uses the same formulas applied to the raw
	// closes, not weighted by shares
	benchSeries := make(ValueSeries, len(benchmark))
	for ii, pp := range benchmark {
		benchSeries[ii] = ValuePoint{Time: pp.Date, Value: pp.Close}
	}
	benchMetrics := CalculateMetrics(benchSeries, benchmark[0].Close, benchmark.Begin(), asOf, cfg)

	comparison := Comparison{
		PortfolioReturn: metrics.AnnualizedReturn,
		BenchmarkReturn: benchMetrics.AnnualizedReturn,
		Alpha:           metrics.AnnualizedReturn - benchMetrics.AnnualizedReturn,
	}
	comparison.Beta, comparison.BetaIsFallback = beta(series.DailyReturns(), benchSeries.DailyReturns(), cfg)

	// strict: alpha of exactly 0 is not outperforming
	comparison.Outperforming = comparison.Alpha > 0

	return comparison, nil
}

// beta is covariance of portfolio and benchmark daily returns divided
// by benchmark return variance, over the overlapping prefix. The
// second return value reports whether the fallback policy applied.
func beta(portfolioReturns []float64, benchmarkReturns []float64, cfg Config) (float64, bool) {
	n := len(portfolioReturns)
	if len(benchmarkReturns) < n {
		n = len(benchmarkReturns)
	}
	if n < 2 {
		return cfg.FallbackBeta, true
	}

	retP := portfolioReturns[:n]
	retB := benchmarkReturns[:n]

	variance := stat.Variance(retB, nil)
	if variance == 0 {
		return cfg.FallbackBeta, true
	}

	return stat.Covariance(retP, retB, nil) / variance, false
}
