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
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/folioscope/folio-api/data"
	"github.com/folioscope/folio-api/portfolio"
)

var _ = Describe("Benchmark comparison", func() {
	var (
		cfg      portfolio.Config
		purchase time.Time
		asOf     time.Time
	)

	BeforeEach(func() {
		cfg = portfolio.Config{
			RiskFreeRate: 0.02,
			FallbackBeta: 1.0,
		}
		purchase = tradingDay(2021, time.January, 4)
		asOf = purchase.AddDate(0, 0, 3)
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

	Context("with usable benchmark data", func() {
		It("computes alpha as the difference of annualized returns", func() {
			series := valueSeries(100, 102, 104, 107)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			benchmark := priceSeries(purchase, 400, 402, 403, 405)

			comparison, err := portfolio.CompareBenchmark(series, metrics, benchmark, asOf, cfg)
			Expect(err).To(BeNil())
			Expect(comparison.PortfolioReturn).Should(BeNumerically("~", metrics.AnnualizedReturn, 1e-9))
			Expect(comparison.Alpha).Should(
				BeNumerically("~", comparison.PortfolioReturn-comparison.BenchmarkReturn, 1e-9))
		})

		It("treats a positive alpha as outperforming", func() {
			series := valueSeries(100, 105, 111, 118)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			benchmark := priceSeries(purchase, 400, 401, 402, 403)

			comparison, err := portfolio.CompareBenchmark(series, metrics, benchmark, asOf, cfg)
			Expect(err).To(BeNil())
			Expect(comparison.Alpha).Should(BeNumerically(">", 0.0))
			Expect(comparison.Outperforming).To(BeTrue())
		})

		It("does not treat an alpha of exactly zero as outperforming", func() {
			series := valueSeries(100, 101, 102, 103)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			// identical shape scaled by 4 yields identical returns
			benchmark := priceSeries(purchase, 400, 404, 408, 412)

			comparison, err := portfolio.CompareBenchmark(series, metrics, benchmark, asOf, cfg)
			Expect(err).To(BeNil())
			Expect(comparison.Alpha).Should(BeNumerically("~", 0.0, 1e-9))
			Expect(comparison.Outperforming).To(BeFalse())
		})

		It("measures a beta of ~1 for a portfolio that moves with the benchmark", func() {
			series := valueSeries(100, 102, 99, 104)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			benchmark := priceSeries(purchase, 400, 408, 396, 416)

			comparison, err := portfolio.CompareBenchmark(series, metrics, benchmark, asOf, cfg)
			Expect(err).To(BeNil())
			Expect(comparison.BetaIsFallback).To(BeFalse())
			Expect(comparison.Beta).Should(BeNumerically("~", 1.0, 1e-9))
		})
	})

	Context("when beta cannot be measured", func() {
		It("falls back for a flat benchmark and flags the fallback", func() {
			series := valueSeries(100, 102, 104, 107)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			benchmark := priceSeries(purchase, 100, 100, 100, 100)

			comparison, err := portfolio.CompareBenchmark(series, metrics, benchmark, asOf, cfg)
			Expect(err).To(BeNil())
			Expect(comparison.Beta).Should(BeNumerically("~", cfg.FallbackBeta, 1e-9))
			Expect(comparison.BetaIsFallback).To(BeTrue())
		})

		It("falls back when the overlapping window is too short", func() {
			series := valueSeries(100, 102, 104, 107)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)
			benchmark := priceSeries(purchase, 400, 408)

			comparison, err := portfolio.CompareBenchmark(series, metrics, benchmark, asOf, cfg)
			Expect(err).To(BeNil())
			Expect(comparison.BetaIsFallback).To(BeTrue())
		})
	})

	Context("when the benchmark is unusable", func() {
		It("errors with fewer than 2 benchmark points", func() {
			series := valueSeries(100, 102, 104)
			metrics := portfolio.CalculateMetrics(series, 100, purchase, asOf, cfg)

			_, err := portfolio.CompareBenchmark(series, metrics, data.PriceSeries{{Date: purchase, Close: 400}}, asOf, cfg)
			Expect(errors.Is(err, portfolio.ErrBenchmarkUnavailable)).To(BeTrue())

			_, err = portfolio.CompareBenchmark(series, metrics, data.PriceSeries{}, asOf, cfg)
			Expect(errors.Is(err, portfolio.ErrBenchmarkUnavailable)).To(BeTrue())
		})
	})
})
