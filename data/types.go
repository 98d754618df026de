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
	"time"
)

// PricePoint is a single daily close observation for a security.
// Immutable once fetched.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered sequence of price points for one ticker,
// ascending by date with no duplicate dates
type PriceSeries []PricePoint

// Validate checks that the series is strictly ascending by date
func (ps PriceSeries) Validate() error {
	for ii := 1; ii < len(ps); ii++ {
		if !ps[ii-1].Date.Before(ps[ii].Date) {
			return ErrMalformedSeries
		}
	}
	return nil
}

// Begin returns the date of the first point in the series
func (ps PriceSeries) Begin() time.Time {
	if len(ps) == 0 {
		return time.Time{}
	}
	return ps[0].Date
}

// End returns the date of the last point in the series
func (ps PriceSeries) End() time.Time {
	if len(ps) == 0 {
		return time.Time{}
	}
	return ps[len(ps)-1].Date
}

// Closes returns the close values of the series as a float slice
func (ps PriceSeries) Closes() []float64 {
	closes := make([]float64, len(ps))
	for ii, pp := range ps {
		closes[ii] = pp.Close
	}
	return closes
}

// CloseOn returns the close on the given date; the bool result
// reports whether a price exists for that date
func (ps PriceSeries) CloseOn(date time.Time) (float64, bool) {
	for _, pp := range ps {
		if sameDay(pp.Date, date) {
			return pp.Close, true
		}
		if pp.Date.After(date) {
			break
		}
	}
	return 0, false
}

// After returns the sub-series with dates on or after begin
func (ps PriceSeries) After(begin time.Time) PriceSeries {
	for ii, pp := range ps {
		if !pp.Date.Before(begin) {
			return ps[ii:]
		}
	}
	return PriceSeries{}
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
