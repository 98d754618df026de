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

package router

import (
	"github.com/folioscope/folio-api/handler"
	"github.com/folioscope/folio-api/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/lestrrat-go/jwx/jwk"
)

// SetupRoutes registers the api routes
func SetupRoutes(app *fiber.App, jwks *jwk.AutoRefresh, jwksURL string) {
	api := app.Group("/v1", middleware.FSAuth(jwks, jwksURL))
	api.Get("/", handler.Ping)

	// Analytics
	api.Post("/analyze", handler.Analyze)
	api.Post("/simulate", handler.Simulate)

	// Playback sessions
	pb := api.Group("/playback")
	pb.Post("/", handler.StartPlayback)
	pb.Get("/:id", handler.GetPlayback)
	pb.Put("/:id/pause", handler.PausePlayback)
	pb.Put("/:id/resume", handler.ResumePlayback)
	pb.Put("/:id/speed", handler.UpdatePlaybackSpeed)
	pb.Put("/:id/reset", handler.ResetPlayback)
	pb.Delete("/:id", handler.DeletePlayback)

	// Portfolio
	pf := api.Group("/portfolio")
	pf.Get("/:id/chart", handler.GetPortfolioChart)
	pf.Get("/:id", handler.GetPortfolio)
	pf.Get("/", handler.ListPortfolios)
	pf.Post("/", handler.CreatePortfolio)
	pf.Patch("/:id", handler.UpdatePortfolio)
	pf.Delete("/:id", handler.DeletePortfolio)
}
