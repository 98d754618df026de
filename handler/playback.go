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
	"sync"

	"github.com/folioscope/folio-api/playback"
	"github.com/folioscope/folio-api/portfolio"
	"github.com/folioscope/folio-api/simulation"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sessions holds the live playback schedulers keyed by session id.
// Sessions are in-memory only; a restart discards them.
var sessions = struct {
	sync.RWMutex
	m map[uuid.UUID]*playback.Scheduler
}{m: make(map[uuid.UUID]*playback.Scheduler)}

// PlaybackStartRequest is the body of POST /v1/playback
type PlaybackStartRequest struct {
	Holdings []portfolio.Holding `json:"holdings"`
	Years    int                 `json:"years"`
	Speed    float64             `json:"speed"`
}

// PlaybackSpeedRequest is the body of PUT /v1/playback/:id/speed
type PlaybackSpeedRequest struct {
	Speed float64 `json:"speed"`
}

// StartPlayback creates a playback session: it aligns the historical
// series, computes a projection, and begins revealing it over time
func StartPlayback(c *fiber.Ctx) error {
	ctx := context.Background()

	var req PlaybackStartRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warn().Stack().Err(err).Msg("could not deserialize playback request")
		return fiber.ErrBadRequest
	}

	if err := portfolio.Validate(req.Holdings); err != nil {
		return apiError(c, err)
	}

	series, err := buildSeries(ctx, req.Holdings)
	if err != nil {
		return apiError(c, err)
	}

	speed := req.Speed
	if speed == 0 {
		speed = 1
	}

	engine := simulation.NewEngine(simulation.DefaultConfig())
	scheduler := playback.NewScheduler(engine, playback.NewClock(), series)
	if err := scheduler.Start(ctx, req.Years, speed); err != nil {
		return playbackError(c, err)
	}

	id := uuid.New()
	sessions.Lock()
	sessions.m[id] = scheduler
	sessions.Unlock()

	log.Info().Str("SessionID", id.String()).Int("Years", req.Years).
		Float64("Speed", speed).Msg("playback session started")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    id.String(),
		"state": scheduler.Snapshot(),
	})
}

// GetPlayback returns the session state along with the revealed prefix
// of the projection bands
func GetPlayback(c *fiber.Ctx) error {
	scheduler, err := lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"state": scheduler.Snapshot(),
		"bands": scheduler.RevealedBands(),
	})
}

// PausePlayback halts reveal progression for a session
func PausePlayback(c *fiber.Ctx) error {
	scheduler, err := lookupSession(c)
	if err != nil {
		return err
	}
	if err := scheduler.Pause(); err != nil {
		return playbackError(c, err)
	}
	return c.JSON(fiber.Map{"state": scheduler.Snapshot()})
}

// ResumePlayback continues a paused session
func ResumePlayback(c *fiber.Ctx) error {
	scheduler, err := lookupSession(c)
	if err != nil {
		return err
	}
	if err := scheduler.Resume(); err != nil {
		return playbackError(c, err)
	}
	return c.JSON(fiber.Map{"state": scheduler.Snapshot()})
}

// UpdatePlaybackSpeed changes the reveal speed of a playing session
func UpdatePlaybackSpeed(c *fiber.Ctx) error {
	scheduler, err := lookupSession(c)
	if err != nil {
		return err
	}

	var req PlaybackSpeedRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.ErrBadRequest
	}

	if err := scheduler.UpdateSpeed(req.Speed); err != nil {
		return playbackError(c, err)
	}
	return c.JSON(fiber.Map{"state": scheduler.Snapshot()})
}

// ResetPlayback returns a session to idle, discarding its projection
func ResetPlayback(c *fiber.Ctx) error {
	scheduler, err := lookupSession(c)
	if err != nil {
		return err
	}
	scheduler.Reset()
	return c.JSON(fiber.Map{"state": scheduler.Snapshot()})
}

// DeletePlayback resets and removes a session
func DeletePlayback(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	sessions.Lock()
	scheduler, ok := sessions.m[id]
	delete(sessions.m, id)
	sessions.Unlock()

	if !ok {
		return fiber.ErrNotFound
	}

	scheduler.Reset()
	return c.SendStatus(fiber.StatusNoContent)
}

func lookupSession(c *fiber.Ctx) (*playback.Scheduler, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.ErrBadRequest
	}

	sessions.RLock()
	scheduler, ok := sessions.m[id]
	sessions.RUnlock()

	if !ok {
		return nil, fiber.ErrNotFound
	}
	return scheduler, nil
}

// playbackError maps playback state machine errors onto HTTP status
// codes; invalid transitions are conflicts, not server faults
func playbackError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, playback.ErrNotPlaying),
		errors.Is(err, playback.ErrNotPaused):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"status": "error", "message": err.Error()})
	case errors.Is(err, playback.ErrInvalidSpeed),
		errors.Is(err, playback.ErrEmptyHistory),
		errors.Is(err, simulation.ErrInvalidYears),
		errors.Is(err, simulation.ErrNoHistory):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"status": "error", "message": err.Error()})
	}
	return apiError(c, err)
}
