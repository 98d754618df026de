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
	"github.com/rs/zerolog"
)

func (o Holding) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", o.Ticker).Float64("Shares", o.Shares).Time("PurchaseDate", o.PurchaseDate)
}

func (metrics Metrics) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("TotalReturn", metrics.TotalReturn)
	e.Float64("TotalReturnPct", metrics.TotalReturnPct)
	e.Float64("AnnualizedReturn", metrics.AnnualizedReturn)
	e.Float64("Volatility", metrics.Volatility)
	e.Float64("SharpeRatio", metrics.SharpeRatio)
	e.Float64("MaxDrawdown", metrics.MaxDrawdown)
}

func (comparison Comparison) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("PortfolioReturn", comparison.PortfolioReturn)
	e.Float64("BenchmarkReturn", comparison.BenchmarkReturn)
	e.Float64("Alpha", comparison.Alpha)
	e.Float64("Beta", comparison.Beta)
	e.Bool("BetaIsFallback", comparison.BetaIsFallback)
	e.Bool("Outperforming", comparison.Outperforming)
}
