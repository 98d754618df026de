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
	"github.com/google/uuid"
)

// Holding is a purchased position in a single security
type Holding struct {
	Ticker       string    `json:"ticker"`
	Shares       float64   `json:"shares"`
	PurchaseDate time.Time `json:"purchaseDate"`
}

// Portfolio is a named set of holdings saved by a user
type Portfolio struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	Holdings    []Holding `json:"holdings"`
	Created     time.Time `json:"created"`
	LastChanged time.Time `json:"lastChanged"`
}

// Validate checks the structural validity of the portfolio's holdings.
// Zero or negative share counts and empty holdings are fatal; they are
// rejected before any computation.
func Validate(holdings []Holding) error {
	_, err := sharesByTicker(holdings)
	return err
}

// Tickers returns the distinct normalized tickers across holdings
func Tickers(holdings []Holding) []string {
	seen := make(map[string]bool, len(holdings))
	tickers := make([]string, 0, len(holdings))
	for _, holding := range holdings {
		ticker := common.NormalizeTicker(holding.Ticker)
		if !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}

// EarliestPurchase returns the earliest purchase date across holdings;
// the zero time when there are no holdings
func EarliestPurchase(holdings []Holding) time.Time {
	var earliest time.Time
	for _, holding := range holdings {
		if earliest.IsZero() || holding.PurchaseDate.Before(earliest) {
			earliest = holding.PurchaseDate
		}
	}
	return earliest
}
