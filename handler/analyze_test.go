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

package handler_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/folioscope/folio-api/common"
	"github.com/folioscope/folio-api/data"
	"github.com/folioscope/folio-api/handler"
)

// stubProvider serves deterministic price history for handler tests
type stubProvider struct {
	series map[string]data.PriceSeries
}

func (s *stubProvider) Name() string {
	return "stub"
}

func (s *stubProvider) GetPriceHistory(_ context.Context, symbol string, _ time.Time, _ time.Time) (data.PriceSeries, error) {
	series, ok := s.series[symbol]
	if !ok {
		return nil, data.ErrSymbolNotFound
	}
	return series, nil
}

func dailySeries(start time.Time, days int, initial float64, drift float64) data.PriceSeries {
	series := make(data.PriceSeries, 0, days)
	value := initial
	for ii := 0; ii < days; ii++ {
		series = append(series, data.PricePoint{
			Date:  start.AddDate(0, 0, ii),
			Close: value,
		})
		value *= 1 + drift
	}
	return series
}

func postJSON(app *fiber.App, path string, body interface{}) (*http.Response, []byte) {
	raw, err := json.Marshal(body)
	Expect(err).To(BeNil())

	req, err := http.NewRequest(fiber.MethodPost, path, bytes.NewReader(raw))
	Expect(err).To(BeNil())
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, 30000)
	Expect(err).To(BeNil())
	payload, err := ioutil.ReadAll(resp.Body)
	Expect(err).To(BeNil())
	return resp, payload
}

var _ = Describe("Analytics endpoints", func() {
	var (
		app   *fiber.App
		start time.Time
	)

	BeforeEach(func() {
		viper.Set("cache.redis", false)
		viper.Set("benchmark.symbol", "SPY")
		common.SetupCache()

		start = time.Date(2021, time.January, 4, 0, 0, 0, 0, common.GetTimezone())
		handler.SetDataManager(data.NewManagerWithProvider(&stubProvider{
			series: map[string]data.PriceSeries{
				"AAPL":  dailySeries(start, 400, 130, 0.001),
				"MSFT":  dailySeries(start, 400, 220, 0.0012),
				"SPY":   dailySeries(start, 400, 370, 0.0008),
				"SHORT": dailySeries(start, 1, 370, 0),
			},
		}))

		app = fiber.New()
		app.Post("/v1/analyze", handler.Analyze)
		app.Post("/v1/simulate", handler.Simulate)
	})

	holdings := func() []map[string]interface{} {
		return []map[string]interface{}{
			{"ticker": "AAPL", "shares": 10, "purchaseDate": start.Format(time.RFC3339)},
			{"ticker": "MSFT", "shares": 5, "purchaseDate": start.Format(time.RFC3339)},
		}
	}

	Context("POST /v1/analyze", func() {
		It("returns metrics and a benchmark comparison", func() {
			resp, payload := postJSON(app, "/v1/analyze", map[string]interface{}{
				"holdings": holdings(),
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result handler.AnalyzeResponse
			Expect(json.Unmarshal(payload, &result)).To(Succeed())
			Expect(result.Values).ToNot(BeEmpty())
			Expect(result.Metrics.TotalReturn).Should(BeNumerically(">", 0.0))
			Expect(result.Comparison).ToNot(BeNil())
			Expect(result.ComparisonError).To(BeEmpty())
		})

		It("omits the comparison when the benchmark is unavailable", func() {
			resp, payload := postJSON(app, "/v1/analyze", map[string]interface{}{
				"holdings":  holdings(),
				"benchmark": "NOSUCH",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result handler.AnalyzeResponse
			Expect(json.Unmarshal(payload, &result)).To(Succeed())
			Expect(result.Comparison).To(BeNil())
			Expect(result.ComparisonError).ToNot(BeEmpty())
			Expect(result.Metrics.TotalReturn).Should(BeNumerically(">", 0.0))
		})

		It("omits the comparison when the benchmark history is too short", func() {
			resp, payload := postJSON(app, "/v1/analyze", map[string]interface{}{
				"holdings":  holdings(),
				"benchmark": "SHORT",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result handler.AnalyzeResponse
			Expect(json.Unmarshal(payload, &result)).To(Succeed())
			Expect(result.Comparison).To(BeNil())
			Expect(result.ComparisonError).ToNot(BeEmpty())
			Expect(result.Metrics.TotalReturn).Should(BeNumerically(">", 0.0))
		})

		It("rejects empty holdings", func() {
			resp, _ := postJSON(app, "/v1/analyze", map[string]interface{}{
				"holdings": []map[string]interface{}{},
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnprocessableEntity))
		})

		It("rejects malformed bodies", func() {
			req, err := http.NewRequest(fiber.MethodPost, "/v1/analyze", bytes.NewReader([]byte("{")))
			Expect(err).To(BeNil())
			resp, err := app.Test(req)
			Expect(err).To(BeNil())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("maps unknown symbols to 404", func() {
			resp, _ := postJSON(app, "/v1/analyze", map[string]interface{}{
				"holdings": []map[string]interface{}{
					{"ticker": "NOSUCH", "shares": 1, "purchaseDate": start.Format(time.RFC3339)},
				},
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Context("POST /v1/simulate", func() {
		It("returns projection bands and sample paths", func() {
			resp, payload := postJSON(app, "/v1/simulate", map[string]interface{}{
				"holdings": holdings(),
				"years":    5,
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result struct {
				TotalSteps int `json:"totalSteps"`
				Bands      struct {
					P25 []interface{} `json:"p25"`
					P50 []interface{} `json:"p50"`
					P75 []interface{} `json:"p75"`
				} `json:"bands"`
				SamplePaths [][]interface{} `json:"samplePaths"`
			}
			Expect(json.Unmarshal(payload, &result)).To(Succeed())
			Expect(result.TotalSteps).To(Equal(60))
			Expect(result.Bands.P50).To(HaveLen(61))
			Expect(result.SamplePaths).To(HaveLen(5))
		})

		It("rejects a non-positive horizon", func() {
			resp, _ := postJSON(app, "/v1/simulate", map[string]interface{}{
				"holdings": holdings(),
				"years":    0,
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnprocessableEntity))
		})
	})
})
