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

package data

import (
	"context"
	"time"

	"github.com/folioscope/folio-api/common"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultBenchmark is used when no benchmark symbol is configured; SPY
// is a broad-market index proxy
const DefaultBenchmark = "SPY"

// Provider retrieves historical quotes from a market data source.
// Providers are responsible for their own retry and rate limiting.
type Provider interface {
	Name() string
	GetPriceHistory(ctx context.Context, symbol string, begin time.Time, end time.Time) (PriceSeries, error)
}

// Manager fronts a Provider with the shared two-tier cache. It is safe
// for concurrent use; the underlying cache performs its own locking.
type Manager struct {
	provider Provider
}

// NewManager creates a manager backed by the default provider
func NewManager() *Manager {
	return &Manager{
		provider: NewYFinance(),
	}
}

// NewManagerWithProvider creates a manager backed by the given
// provider; used by tests
func NewManagerWithProvider(provider Provider) *Manager {
	return &Manager{
		provider: provider,
	}
}

// PriceHistory returns the daily close history for symbol from begin
// through today, consulting the cache before the provider
func (m *Manager) PriceHistory(ctx context.Context, symbol string, begin time.Time) (PriceSeries, error) {
	symbol = common.NormalizeTicker(symbol)
	end := time.Now()

	if series, ok := cachedPriceSeries(symbol, begin, end); ok {
		return series, nil
	}

	series, err := m.provider.GetPriceHistory(ctx, symbol, begin, end)
	if err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Str("Provider", m.provider.Name()).
			Msg("price history fetch failed")
		return nil, err
	}

	storePriceSeries(symbol, begin, end, series)
	return series, nil
}

// PriceHistories fetches price history for each symbol; the result map
// is keyed by normalized ticker. Any individual fetch failure fails
// the whole request since the aligner needs every holding's series.
func (m *Manager) PriceHistories(ctx context.Context, symbols []string, begin time.Time) (map[string]PriceSeries, error) {
	result := make(map[string]PriceSeries, len(symbols))
	for _, symbol := range symbols {
		symbol = common.NormalizeTicker(symbol)
		if _, ok := result[symbol]; ok {
			continue
		}
		series, err := m.PriceHistory(ctx, symbol, begin)
		if err != nil {
			return nil, err
		}
		result[symbol] = series
	}
	return result, nil
}

// Benchmark returns the close history of the configured benchmark
// index proxy
func (m *Manager) Benchmark(ctx context.Context, begin time.Time) (PriceSeries, error) {
	symbol := viper.GetString("benchmark.symbol")
	if symbol == "" {
		symbol = DefaultBenchmark
	}
	return m.PriceHistory(ctx, symbol, begin)
}
