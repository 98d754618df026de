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

type playbackState struct {
	Phase           string  `json:"phase"`
	RevealedCount   int     `json:"revealedCount"`
	ProgressPct     int     `json:"progressPct"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
	TimeframeYears  int     `json:"timeframeYears"`
}

type playbackResponse struct {
	ID    string        `json:"id"`
	State playbackState `json:"state"`
}

var _ = Describe("Playback endpoints", func() {
	var (
		app   *fiber.App
		start time.Time
	)

	BeforeEach(func() {
		viper.Set("cache.redis", false)
		common.SetupCache()

		start = time.Date(2021, time.January, 4, 0, 0, 0, 0, common.GetTimezone())
		handler.SetDataManager(data.NewManagerWithProvider(&stubProvider{
			series: map[string]data.PriceSeries{
				"VTI": dailySeries(start, 400, 200, 0.001),
			},
		}))

		app = fiber.New()
		app.Post("/v1/playback", handler.StartPlayback)
		app.Get("/v1/playback/:id", handler.GetPlayback)
		app.Put("/v1/playback/:id/pause", handler.PausePlayback)
		app.Put("/v1/playback/:id/resume", handler.ResumePlayback)
		app.Put("/v1/playback/:id/speed", handler.UpdatePlaybackSpeed)
		app.Put("/v1/playback/:id/reset", handler.ResetPlayback)
		app.Delete("/v1/playback/:id", handler.DeletePlayback)
	})

	startSession := func() playbackResponse {
		resp, payload := postJSON(app, "/v1/playback", map[string]interface{}{
			"holdings": []map[string]interface{}{
				{"ticker": "VTI", "shares": 10, "purchaseDate": start.Format(time.RFC3339)},
			},
			"years": 2,
		})
		Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

		var result playbackResponse
		Expect(json.Unmarshal(payload, &result)).To(Succeed())
		return result
	}

	do := func(method, path string) (*http.Response, []byte) {
		req, err := http.NewRequest(method, path, nil)
		Expect(err).To(BeNil())
		resp, err := app.Test(req, 30000)
		Expect(err).To(BeNil())

		payload, err := ioutil.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		return resp, payload
	}

	It("starts a session in the playing phase", func() {
		session := startSession()
		Expect(session.ID).ToNot(BeEmpty())
		Expect(session.State.Phase).To(Equal("playing"))
		Expect(session.State.TimeframeYears).To(Equal(2))
		Expect(session.State.SpeedMultiplier).Should(BeNumerically("~", 1.0, 1e-9))
	})

	It("pauses and resumes a session", func() {
		session := startSession()

		resp, payload := do(fiber.MethodPut, "/v1/playback/"+session.ID+"/pause")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		var result playbackResponse
		Expect(json.Unmarshal(payload, &result)).To(Succeed())
		Expect(result.State.Phase).To(Equal("paused"))

		resp, payload = do(fiber.MethodPut, "/v1/playback/"+session.ID+"/resume")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(json.Unmarshal(payload, &result)).To(Succeed())
		Expect(result.State.Phase).To(Equal("playing"))
	})

	It("conflicts on an invalid transition", func() {
		session := startSession()

		resp, _ := do(fiber.MethodPut, "/v1/playback/"+session.ID+"/resume")
		Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
	})

	It("resets a session to idle", func() {
		session := startSession()

		resp, payload := do(fiber.MethodPut, "/v1/playback/"+session.ID+"/reset")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var result playbackResponse
		Expect(json.Unmarshal(payload, &result)).To(Succeed())
		Expect(result.State.Phase).To(Equal("idle"))
		Expect(result.State.RevealedCount).To(Equal(0))
	})

	It("deletes a session", func() {
		session := startSession()

		resp, _ := do(fiber.MethodDelete, "/v1/playback/"+session.ID)
		Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

		resp, _ = do(fiber.MethodGet, "/v1/playback/"+session.ID)
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
	})

	It("rejects unknown session ids", func() {
		resp, _ := do(fiber.MethodGet, "/v1/playback/c7c7a3a0-0000-0000-0000-000000000000")
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))

		resp, _ = do(fiber.MethodGet, "/v1/playback/not-a-uuid")
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
	})

	It("rejects a session with no usable history", func() {
		resp, _ := postJSON(app, "/v1/playback", map[string]interface{}{
			"holdings": []map[string]interface{}{},
			"years":    2,
		})
		Expect(resp.StatusCode).To(Equal(fiber.StatusUnprocessableEntity))
	})
})
