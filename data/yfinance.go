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
	"io/ioutil"
	"net/http"
	"time"

	"context"

	"github.com/folioscope/folio-api/observability/opentelemetry"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// yfinance retrieves daily close prices from the Yahoo Finance chart
// endpoint. Prices are auto-adjusted (adjclose) when the response
// carries an adjusted series.
type yfinance struct {
	client *http.Client
}

var yfinanceAPI = "https://query1.finance.yahoo.com"

type yfinanceChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewYFinance creates a new Yahoo Finance data provider
func NewYFinance() Provider {
	return &yfinance{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (y *yfinance) Name() string {
	return "yfinance"
}

// GetPriceHistory fetches the daily close history for symbol from
// begin through end, inclusive
func (y *yfinance) GetPriceHistory(ctx context.Context, symbol string, begin time.Time, end time.Time) (PriceSeries, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "yfinance.GetPriceHistory")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		yfinanceAPI, symbol, begin.Unix(), end.Unix())

	span.SetAttributes(
		attribute.KeyValue{
			Key:   "Symbol",
			Value: attribute.StringValue(symbol),
		},
		attribute.KeyValue{
			Key:   "Url",
			Value: attribute.StringValue(url),
		},
	)

	resp, err := y.client.Get(url)
	if err != nil {
		span.RecordError(err)
		msg := "yfinance http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSymbolNotFound
	}

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.KeyValue{
			Key:   "StatusCode",
			Value: attribute.IntValue(resp.StatusCode),
		})
		msg := "yfinance returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg(msg)
		return nil, fmt.Errorf("%w: status code %d", ErrProviderFailed, resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		msg := "could not read yfinance body"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}

	jsonResp := yfinanceChartResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		span.RecordError(err)
		msg := "could not unmarshal json"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Bytes("Body", body).Msg(msg)
		return nil, err
	}

	if jsonResp.Chart.Error != nil {
		subLog.Warn().Str("ProviderCode", jsonResp.Chart.Error.Code).
			Str("ProviderDescription", jsonResp.Chart.Error.Description).
			Msg("yfinance reported an error")
		return nil, fmt.Errorf("%w: %s", ErrProviderFailed, jsonResp.Chart.Error.Description)
	}

	if len(jsonResp.Chart.Result) == 0 {
		return nil, ErrEmptyResponse
	}

	result := jsonResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ErrEmptyResponse
	}

	closes := result.Indicators.Quote[0].Close
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(closes) {
		closes = result.Indicators.AdjClose[0].AdjClose
	}

	tz := marketTimezone()
	series := make(PriceSeries, 0, len(result.Timestamp))
	for ii, ts := range result.Timestamp {
		if ii >= len(closes) || closes[ii] == nil {
			// yahoo emits nulls for halted sessions; drop them
			continue
		}
		dt := time.Unix(ts, 0).In(tz)
		series = append(series, PricePoint{
			Date:  time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, tz),
			Close: *closes[ii],
		})
	}

	if len(series) == 0 {
		return nil, ErrEmptyResponse
	}

	if err := series.Validate(); err != nil {
		subLog.Error().Err(err).Msg("yfinance returned an out-of-order series")
		return nil, err
	}

	return series, nil
}

func marketTimezone() *time.Location {
	tz, err := time.LoadLocation("America/New_York") // New York is the reference time
	if err != nil {
		log.Panic().Err(err).Msg("could not load nyc timezone")
	}
	return tz
}
