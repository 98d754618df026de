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
	"fmt"
	"time"

	"github.com/folioscope/folio-api/common"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// priceCacheKey derives a stable cache key for a symbol / date range
// request. end is truncated to the day so intraday re-requests hit the
// same entry.
func priceCacheKey(symbol string, begin time.Time, end time.Time) string {
	raw := fmt.Sprintf("prices:%s:%s:%s", symbol,
		begin.Format("2006-01-02"), end.Format("2006-01-02"))
	sum := blake3.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

func cachedPriceSeries(symbol string, begin time.Time, end time.Time) (PriceSeries, bool) {
	raw, err := common.CacheGet(priceCacheKey(symbol, begin, end))
	if err != nil {
		return nil, false
	}

	var series PriceSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("could not unmarshal cached price series")
		return nil, false
	}
	return series, true
}

func storePriceSeries(symbol string, begin time.Time, end time.Time, series PriceSeries) {
	raw, err := json.Marshal(series)
	if err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("could not marshal price series for cache")
		return
	}
	if err := common.CacheSet(priceCacheKey(symbol, begin, end), raw); err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("could not store price series in cache")
	}
}
