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
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/folioscope/folio-api/portfolio"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// listFilterParams are the query parameters a caller may filter the
// portfolio list on; everything else is ignored
var listFilterParams = []string{"name", "created", "lastchanged"}

// GetPortfolio loads a single saved portfolio owned by the requesting
// user
func GetPortfolio(c *fiber.Ctx) error {
	ctx := context.Background()
	userID := c.Locals("userID").(string)

	portfolioID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	p, err := portfolio.LoadPortfolio(ctx, portfolioID, userID)
	if err != nil {
		if errors.Is(err, portfolio.ErrPortfolioNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	return c.JSON(p)
}

// ListPortfolios returns the requesting user's saved portfolios,
// optionally filtered by query parameters like ?name=eq.Retirement
func ListPortfolios(c *fiber.Ctx) error {
	ctx := context.Background()
	userID := c.Locals("userID").(string)

	where := make(map[string]string)
	for _, param := range listFilterParams {
		if value := c.Query(param); value != "" {
			where[param] = value
		}
	}

	portfolios, err := portfolio.ListPortfolios(ctx, userID, where)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(portfolios)
}

// CreatePortfolio saves a new named portfolio for the requesting user
func CreatePortfolio(c *fiber.Ctx) error {
	ctx := context.Background()
	userID := c.Locals("userID").(string)

	var p portfolio.Portfolio
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		log.Warn().Stack().Err(err).Msg("could not deserialize portfolio")
		return fiber.ErrBadRequest
	}

	if p.Name == "" {
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"status": "error", "message": "portfolio name is required"})
	}
	if err := portfolio.Validate(p.Holdings); err != nil {
		return apiError(c, err)
	}

	p.ID = uuid.New()
	p.UserID = userID
	p.Created = time.Now()
	p.LastChanged = p.Created

	if err := p.Save(ctx); err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdatePortfolio replaces the name and holdings of an existing
// portfolio
func UpdatePortfolio(c *fiber.Ctx) error {
	ctx := context.Background()
	userID := c.Locals("userID").(string)

	portfolioID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	existing, err := portfolio.LoadPortfolio(ctx, portfolioID, userID)
	if err != nil {
		if errors.Is(err, portfolio.ErrPortfolioNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var update portfolio.Portfolio
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		return fiber.ErrBadRequest
	}

	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.Holdings != nil {
		if err := portfolio.Validate(update.Holdings); err != nil {
			return apiError(c, err)
		}
		existing.Holdings = update.Holdings
	}
	existing.LastChanged = time.Now()

	if err := existing.Save(ctx); err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(existing)
}

// DeletePortfolio removes a saved portfolio owned by the requesting
// user
func DeletePortfolio(c *fiber.Ctx) error {
	ctx := context.Background()
	userID := c.Locals("userID").(string)

	portfolioID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	if err := portfolio.DeletePortfolio(ctx, portfolioID, userID); err != nil {
		if errors.Is(err, portfolio.ErrPortfolioNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetPortfolioChart returns the portfolio's historical value series.
// With ?format=csv the series is exported as CSV; otherwise JSON. The
// optional since parameter (RFC 3339) limits the range.
func GetPortfolioChart(c *fiber.Ctx) error {
	ctx := context.Background()
	userID := c.Locals("userID").(string)

	portfolioID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	p, err := portfolio.LoadPortfolio(ctx, portfolioID, userID)
	if err != nil {
		if errors.Is(err, portfolio.ErrPortfolioNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	series, err := buildSeries(ctx, p.Holdings)
	if err != nil {
		return apiError(c, err)
	}

	var since time.Time
	if sinceParam := c.Query("since"); sinceParam != "" {
		since, err = time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			return fiber.ErrBadRequest
		}
	}

	if c.Query("format") == "csv" {
		buf := &bytes.Buffer{}
		if err := series.ExportCSV(ctx, buf, since); err != nil {
			log.Error().Stack().Err(err).Str("PortfolioID", portfolioID.String()).
				Msg("could not export portfolio chart")
			return fiber.ErrInternalServerError
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		return c.Send(buf.Bytes())
	}

	return c.JSON(series.After(since))
}
