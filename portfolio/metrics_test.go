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

package portfolio_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/folioscope/folio-api/portfolio"
)

var _ = Describe("Performance metrics", func() {
	var (
		cfg      portfolio.Config
		purchase time.Time
	)

	BeforeEach(func() {
		cfg = portfolio.Config{
			RiskFreeRate: 0.02,
			FallbackBeta: 1.0,
		}
		purchase = tradingDay(2021, time.January, 4)
	})

	valueSeries := func(values ...float64) portfolio.ValueSeries {
		series := make(portfolio.ValueSeries, 0, len(values))
		for ii, value := range values {
			series = append(series, portfolio.ValuePoint{
				Time:  purchase.AddDate(0, 0, ii),
				Value: value,
			})
		}
		return series
	}

	Context("total return", func() {
		It("reports absolute and percentage gain", func() {
			series := valueSeries(100, 110, 121)
			asOf := series[len(series)-1].Time

			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			Expect(metrics.TotalReturn).Should(BeNumerically("~", 21.0, 1e-9))
			Expect(metrics.TotalReturnPct).Should(BeNumerically("~", 0.21, 1e-9))
		})

		It("reports losses as negative returns", func() {
			series := valueSeries(100, 90, 80)
			asOf := series[len(series)-1].Time

			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			Expect(metrics.TotalReturn).Should(BeNumerically("~", -20.0, 1e-9))
			Expect(metrics.TotalReturnPct).Should(BeNumerically("~", -0.20, 1e-9))
		})
	})

	Context("annualized return", func() {
		It("compounds the holding period return to a yearly rate", func() {
			series := valueSeries(100, 110, 121)
			asOf := purchase.AddDate(0, 0, 2)

			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			want := math.Pow(1.21, 365.25/2) - 1
			Expect(metrics.AnnualizedReturn).Should(BeNumerically("~", want, 1e-9))
		})

		It("is zero when no time has passed", func() {
			series := valueSeries(100, 110)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, purchase, cfg)
			Expect(metrics.AnnualizedReturn).To(BeZero())
		})
	})

	Context("volatility", func() {
		It("annualizes the sample deviation of daily returns", func() {
			rets := []float64{0.01, -0.02, 0.03, 0.005}

			mean := 0.0
			for _, r := range rets {
				mean += r
			}
			mean /= float64(len(rets))
			variance := 0.0
			for _, r := range rets {
				variance += (r - mean) * (r - mean)
			}
			variance /= float64(len(rets) - 1)
			want := math.Sqrt(variance) * math.Sqrt(252)

			Expect(portfolio.Volatility(rets)).Should(BeNumerically("~", want, 1e-9))
		})

		It("is zero with fewer than 2 returns", func() {
			Expect(portfolio.Volatility([]float64{0.01})).To(BeZero())
			Expect(portfolio.Volatility(nil)).To(BeZero())
		})
	})

	Context("sharpe ratio", func() {
		It("is zero when volatility is zero instead of dividing by zero", func() {
			// constant series has no volatility
			series := valueSeries(100, 100, 100)
			asOf := purchase.AddDate(1, 0, 0)

			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			Expect(metrics.Volatility).To(BeZero())
			Expect(metrics.SharpeRatio).To(BeZero())
		})

		It("is excess annualized return over volatility", func() {
			series := valueSeries(100, 101, 103, 102, 105)
			asOf := purchase.AddDate(0, 0, 4)

			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			Expect(metrics.SharpeRatio).Should(
				BeNumerically("~", (metrics.AnnualizedReturn-cfg.RiskFreeRate)/metrics.Volatility, 1e-9))
		})
	})

	Context("max drawdown", func() {
		It("measures the largest decline from a running peak", func() {
			series := valueSeries(100, 120, 90, 110, 80)
			// worst drop: 120 -> 80
			Expect(portfolio.MaxDrawdown(series)).Should(BeNumerically("~", 40.0/120.0, 1e-9))
		})

		It("is zero for a monotonically increasing series", func() {
			series := valueSeries(100, 105, 110, 120)
			Expect(portfolio.MaxDrawdown(series)).To(BeZero())
		})

		It("stays within [0, 1]", func() {
			series := valueSeries(100, 1, 200, 2)
			dd := portfolio.MaxDrawdown(series)
			Expect(dd).Should(BeNumerically(">=", 0.0))
			Expect(dd).Should(BeNumerically("<=", 1.0))
		})

		It("is zero with fewer than 2 points", func() {
			Expect(portfolio.MaxDrawdown(valueSeries(100))).To(BeZero())
		})
	})

	Context("degenerate inputs", func() {
		It("returns zero metrics for an empty series", func() {
			metrics := portfolio.CalculateMetrics(portfolio.ValueSeries{}, 100, purchase, purchase, cfg)
			Expect(metrics).To(Equal(portfolio.Metrics{}))
		})

		It("is idempotent for the same inputs", func() {
			series := valueSeries(100, 103, 99, 108)
			asOf := purchase.AddDate(0, 0, 3)

			first := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			second := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			Expect(first).To(Equal(second))
		})
	})
})
