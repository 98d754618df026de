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

import "errors"

var (
	// ErrNoHoldings indicates a portfolio with no holdings; this is
	// structurally invalid input and fatal to the whole computation
	ErrNoHoldings = errors.New("portfolio has no holdings")

	// ErrInvalidHolding indicates a holding with a blank ticker or a
	// zero / negative share count
	ErrInvalidHolding = errors.New("holding has invalid ticker or share count")

	// ErrMissingPrices indicates no price series was supplied for one
	// of the portfolio's tickers
	ErrMissingPrices = errors.New("no price series for ticker")

	// ErrInsufficientData indicates fewer than 2 aligned points exist;
	// no return can be computed from a single point
	ErrInsufficientData = errors.New("insufficient data; need at least 2 aligned points")

	// ErrBenchmarkUnavailable indicates the benchmark comparison could
	// not be computed. Callers must treat this as "comparison not
	// available," not as zero alpha.
	ErrBenchmarkUnavailable = errors.New("benchmark comparison unavailable")

	// ErrPortfolioNotFound indicates the requested saved portfolio does
	// not exist for the user
	ErrPortfolioNotFound = errors.New("portfolio not found")
)
