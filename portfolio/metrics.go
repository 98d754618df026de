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
	"math"
	"time"

	"github.com/spf13/viper"
	"gonum.org/v1/gonum/stat"
)

const (
	daysPerYear        = 365.25
	tradingDaysPerYear = 252
)

// Config collects the fallback constants used throughout the metric
// calculations. They are policy values, not measured quantities, so
// they are exposed here as overridable parameters rather than
// hard-coded literals.
type Config struct {
	// RiskFreeRate is the assumed annual risk free rate used in the
	// Sharpe ratio
	RiskFreeRate float64

	// FallbackBeta is reported when benchmark variance is zero or data
	// is insufficient
	FallbackBeta float64
}

// DefaultConfig returns the configured fallback constants, falling
// back to a 2% risk free rate and a beta of 1.0
func DefaultConfig() Config {
	cfg := Config{
		RiskFreeRate: 0.02,
		FallbackBeta: 1.0,
	}
	if viper.IsSet("analytics.risk_free_rate") {
		cfg.RiskFreeRate = viper.GetFloat64("analytics.risk_free_rate")
	}
	if viper.IsSet("analytics.fallback_beta") {
		cfg.FallbackBeta = viper.GetFloat64("analytics.fallback_beta")
	}
	return cfg
}

// Metrics summarizes the return and risk character of a value series.
// All fields are derived and recomputed on demand; none are persisted.
type Metrics struct {
	TotalReturn      float64 `json:"totalReturn"`
	TotalReturnPct   float64 `json:"totalReturnPct"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
}

// CalculateMetrics derives the full metric summary from a value
// series. initialInvestment is the cost basis at the first aligned
// date; purchaseDate is the earliest purchase across holdings; asOf is
// the report date (zero means now).
//
// Each metric falls back to 0 rather than failing when its inputs are
// insufficient, so a partial report remains useful.
func CalculateMetrics(series ValueSeries, initialInvestment float64, purchaseDate time.Time, asOf time.Time, cfg Config) Metrics {
	metrics := Metrics{}
	if len(series) == 0 {
		return metrics
	}

	if asOf.IsZero() {
		asOf = time.Now()
	}

	currentValue := series[len(series)-1].Value
	metrics.TotalReturn = currentValue - initialInvestment
	if initialInvestment != 0 {
		metrics.TotalReturnPct = metrics.TotalReturn / initialInvestment
	}

	metrics.AnnualizedReturn = annualize(metrics.TotalReturnPct, purchaseDate, asOf)
	metrics.Volatility = Volatility(series.DailyReturns())
	if metrics.Volatility != 0 {
		metrics.SharpeRatio = (metrics.AnnualizedReturn - cfg.RiskFreeRate) / metrics.Volatility
	}
	metrics.MaxDrawdown = MaxDrawdown(series)

	return metrics
}

// annualize converts a total return percentage into an annual rate
// over the holding span; 0 when the span is not positive
func annualize(totalReturnPct float64, purchaseDate time.Time, asOf time.Time) float64 {
	daysHeld := asOf.Sub(purchaseDate).Hours() / 24
	if daysHeld <= 0 {
		return 0
	}
	return math.Pow(1+totalReturnPct, daysPerYear/daysHeld) - 1
}

// Volatility is the sample standard deviation of daily returns
// annualized by sqrt(252); 0 when fewer than 2 returns exist
func Volatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return stat.StdDev(dailyReturns, nil) * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown is the largest peak-to-trough decline as a fraction of
// the peak; always within [0, 1] and 0 when fewer than 2 points exist
func MaxDrawdown(series ValueSeries) float64 {
	if len(series) < 2 {
		return 0
	}

	peak := series[0].Value
	maxDD := 0.0
	for _, vp := range series {
		peak = math.Max(peak, vp.Value)
		if peak <= 0 {
			continue
		}
		dd := (peak - vp.Value) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
