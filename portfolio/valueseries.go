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

	"github.com/folioscope/folio-api/common"
	"github.com/folioscope/folio-api/data"
)

// ValuePoint is the total portfolio value on a single trading day
type ValuePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ValueSeries is the date-intersected, multi-asset value series used
// as the single source of truth for return and risk computation
type ValueSeries []ValuePoint

// Values returns the series values as a float slice
func (vs ValueSeries) Values() []float64 {
	values := make([]float64, len(vs))
	for ii, vp := range vs {
		values[ii] = vp.Value
	}
	return values
}

// DailyReturns computes r_i = (v_i - v_{i-1}) / v_{i-1} for each
// adjacent pair; pairs where v_{i-1} is not positive are skipped
func (vs ValueSeries) DailyReturns() []float64 {
	rets := make([]float64, 0, len(vs))
	for ii := 1; ii < len(vs); ii++ {
		if vs[ii-1].Value > 0 {
			rets = append(rets, (vs[ii].Value-vs[ii-1].Value)/vs[ii-1].Value)
		}
	}
	return rets
}

// Begin returns the time of the first point in the series
func (vs ValueSeries) Begin() time.Time {
	if len(vs) == 0 {
		return time.Time{}
	}
	return vs[0].Time
}

// After returns the sub-series with times on or after begin
func (vs ValueSeries) After(begin time.Time) ValueSeries {
	for ii, vp := range vs {
		if !vp.Time.Before(begin) {
			return vs[ii:]
		}
	}
	return ValueSeries{}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// BuildValueSeries merges the per-asset price series into a single
// date-indexed portfolio value series. Only dates present in every
// holding's series are included; a date missing from any one asset's
// series is dropped, not imputed. The result preserves chronological
// order.
//
// Returns ErrInsufficientData when fewer than 2 aligned points exist.
func BuildValueSeries(prices map[string]data.PriceSeries, holdings []Holding) (ValueSeries, error) {
	shares, err := sharesByTicker(holdings)
	if err != nil {
		return nil, err
	}

	// index close prices by day for every ticker
	closes := make(map[string]map[string]float64, len(shares))
	var first data.PriceSeries
	var firstTicker string
	for ticker := range shares {
		series, ok := prices[ticker]
		if !ok {
			return nil, ErrMissingPrices
		}
		if err := series.Validate(); err != nil {
			return nil, err
		}
		byDay := make(map[string]float64, len(series))
		for _, pp := range series {
			byDay[dayKey(pp.Date)] = pp.Close
		}
		closes[ticker] = byDay
		if first == nil || len(series) < len(first) {
			first = series
			firstTicker = ticker
		}
	}

	// walk the shortest series in order; keep dates every other
	// ticker also has
	aligned := make(ValueSeries, 0, len(first))
	for _, pp := range first {
		key := dayKey(pp.Date)
		value := 0.0
		present := true
		for ticker, byDay := range closes {
			var close float64
			if ticker == firstTicker {
				close = pp.Close
			} else if close, present = byDay[key]; !present {
				break
			}
			value += shares[ticker] * close
		}
		if present {
			aligned = append(aligned, ValuePoint{Time: pp.Date, Value: value})
		}
	}

	if len(aligned) < 2 {
		return nil, ErrInsufficientData
	}

	return aligned, nil
}

// InitialInvestment is the sum of shares times close at the first
// aligned date per asset; by construction this equals the first
// aligned value
func (vs ValueSeries) InitialInvestment() float64 {
	if len(vs) == 0 {
		return 0
	}
	return vs[0].Value
}

// sharesByTicker validates holdings and aggregates share counts per
// normalized ticker
func sharesByTicker(holdings []Holding) (map[string]float64, error) {
	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}

	shares := make(map[string]float64, len(holdings))
	for _, holding := range holdings {
		ticker := common.NormalizeTicker(holding.Ticker)
		if ticker == "" || holding.Shares <= 0 {
			return nil, ErrInvalidHolding
		}
		shares[ticker] += holding.Shares
	}
	return shares, nil
}
