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

package handler

import (
	"context"
	"errors"

	"github.com/folioscope/folio-api/portfolio"
	"github.com/folioscope/folio-api/simulation"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SimulateRequest is the body of POST /v1/simulate
type SimulateRequest struct {
	Holdings []portfolio.Holding `json:"holdings"`
	Years    int                 `json:"years"`
	Paths    int                 `json:"paths"`
}

// Simulate projects portfolio value forward with a Monte Carlo engine
func Simulate(c *fiber.Ctx) error {
	ctx := context.Background()

	var req SimulateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warn().Stack().Err(err).Msg("could not deserialize simulate request")
		return fiber.ErrBadRequest
	}

	if err := portfolio.Validate(req.Holdings); err != nil {
		return apiError(c, err)
	}

	series, err := buildSeries(ctx, req.Holdings)
	if err != nil {
		return apiError(c, err)
	}

	cfg := simulation.DefaultConfig()
	if req.Paths > 0 {
		cfg.Paths = req.Paths
	}

	engine := simulation.NewEngine(cfg)
	projection, err := engine.Project(ctx, series, req.Years)
	if err != nil {
		switch {
		case errors.Is(err, simulation.ErrInvalidYears),
			errors.Is(err, simulation.ErrNoHistory):
			return c.Status(fiber.StatusUnprocessableEntity).
				JSON(fiber.Map{"status": "error", "message": err.Error()})
		}
		return apiError(c, err)
	}

	return c.JSON(projection)
}

// buildSeries fetches prices for each holding and aligns them into a
// single daily value series
func buildSeries(ctx context.Context, holdings []portfolio.Holding) (portfolio.ValueSeries, error) {
	manager := getDataManager()
	begin := portfolio.EarliestPurchase(holdings)
	prices, err := manager.PriceHistories(ctx, portfolio.Tickers(holdings), begin)
	if err != nil {
		return nil, err
	}
	return portfolio.BuildValueSeries(prices, holdings)
}
