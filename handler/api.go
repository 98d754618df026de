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
	"errors"

	"github.com/folioscope/folio-api/data"
	"github.com/folioscope/folio-api/portfolio"
	"github.com/gofiber/fiber/v2"
)

var dataManager *data.Manager

// SetDataManager injects the market data manager used by the
// analytics handlers; tests substitute a manager with a stub provider
func SetDataManager(m *data.Manager) {
	dataManager = m
}

func getDataManager() *data.Manager {
	if dataManager == nil {
		dataManager = data.NewManager()
	}
	return dataManager
}

// Ping responds to health checks
func Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// apiError maps domain errors onto HTTP status codes. Structurally
// invalid input is a 422; missing market data is a 502.
func apiError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, portfolio.ErrNoHoldings),
		errors.Is(err, portfolio.ErrInvalidHolding),
		errors.Is(err, portfolio.ErrInsufficientData),
		errors.Is(err, data.ErrMalformedSeries):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"status": "error", "message": err.Error()})
	case errors.Is(err, data.ErrSymbolNotFound):
		return c.Status(fiber.StatusNotFound).
			JSON(fiber.Map{"status": "error", "message": err.Error()})
	case errors.Is(err, data.ErrProviderFailed),
		errors.Is(err, data.ErrEmptyResponse):
		return c.Status(fiber.StatusBadGateway).
			JSON(fiber.Map{"status": "error", "message": err.Error()})
	}
	return fiber.ErrInternalServerError
}
