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

package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/folioscope/folio-api/portfolio"
	"github.com/folioscope/folio-api/simulation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Phase is the playback lifecycle state
type Phase int

const (
	Idle Phase = iota
	Playing
	Paused
	Complete
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Complete:
		return "complete"
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

var (
	ErrEmptyHistory = errors.New("cannot start playback with empty historical series")
	ErrNotPlaying   = errors.New("playback is not playing")
	ErrNotPaused    = errors.New("playback is not paused")
	ErrInvalidSpeed = errors.New("speed multiplier must be positive")
)

// tickInterval bounds recomputation cost to roughly 30 ticks/sec
const tickInterval = 33 * time.Millisecond

// State is a snapshot of the scheduler, safe to hand to a display
// layer
type State struct {
	Phase           Phase   `json:"phase"`
	RevealedCount   int     `json:"revealedCount"`
	ProgressPct     int     `json:"progressPct"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
	TimeframeYears  int     `json:"timeframeYears"`
}

// Scheduler reveals projected points over wall-clock time. It owns its
// playback state exclusively; all mutation goes through its transition
// methods. A generation counter invalidates in-flight ticks when the
// run is reset or restarted so a stale callback cannot resurrect a
// discarded run.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	engine *simulation.Engine

	history portfolio.ValueSeries

	// baseDuration is how long a full reveal takes at speed 1
	baseDuration time.Duration

	phase       Phase
	projection  *simulation.Projection
	revealed    int
	speed       float64
	years       int
	startTime   time.Time
	pauseStart  time.Time
	pausedAccum time.Duration
	generation  uint64
}

// NewScheduler creates an idle scheduler for one historical series.
// Each analysis session owns its own scheduler; nothing is shared
// across concurrent portfolios.
func NewScheduler(engine *simulation.Engine, clock Clock, history portfolio.ValueSeries) *Scheduler {
	baseDuration := 30 * time.Second
	if viper.IsSet("playback.base_duration_seconds") {
		baseDuration = time.Duration(viper.GetInt("playback.base_duration_seconds")) * time.Second
	}
	return &Scheduler{
		clock:        clock,
		engine:       engine,
		history:      history,
		baseDuration: baseDuration,
		phase:        Idle,
		speed:        1,
	}
}

// Start computes a projection for the requested horizon and begins
// revealing it. Calling Start during an active run discards that run
// first. Start with an empty historical series is ignored (logged and
// reported) rather than entering an invalid state.
func (s *Scheduler) Start(ctx context.Context, years int, speed float64) error {
	if len(s.history) == 0 {
		log.Warn().Msg("ignoring playback start: historical series is empty")
		return ErrEmptyHistory
	}
	if speed <= 0 {
		return ErrInvalidSpeed
	}

	projection, err := s.engine.Project(ctx, s.history, years)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.projection = projection
	s.revealed = 0
	s.speed = speed
	s.years = years
	s.startTime = s.clock.Now()
	s.pausedAccum = 0
	s.pauseStart = time.Time{}
	s.phase = Playing
	s.mu.Unlock()

	go s.run(generation)
	return nil
}

// run drives the tick loop for a single generation. Only one tick is
// ever in flight; the loop exits when the run completes or its
// generation is invalidated.
func (s *Scheduler) run(generation uint64) {
	ticker := s.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	for now := range ticker.Chan() {
		if !s.tick(generation, now) {
			return
		}
	}
}

// tick advances the revealed index to the elapsed-time target. It
// returns false when the loop should stop: the run completed or a
// newer generation superseded it.
func (s *Scheduler) tick(generation uint64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}

	switch s.phase {
	case Paused:
		// no reveal-index change occurs while paused
		return true
	case Playing:
	default:
		return false
	}

	total := s.projection.TotalSteps
	elapsed := now.Sub(s.startTime) - s.pausedAccum
	runDuration := time.Duration(float64(s.baseDuration) / s.speed)

	target := int(float64(total) * float64(elapsed) / float64(runDuration))
	if target > total {
		target = total
	}

	// revealedCount is monotone; it never regresses within a run
	if target > s.revealed {
		s.revealed = target
	}

	if s.revealed >= total {
		s.phase = Complete
		return false
	}
	return true
}

// Pause halts reveal progression. The pause start time is recorded so
// Resume can exclude the paused span from elapsed time.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Playing {
		return ErrNotPlaying
	}
	s.phase = Paused
	s.pauseStart = s.clock.Now()
	return nil
}

// Resume continues reveal progression. The accumulated paused duration
// keeps elapsed-time accounting correct; without it the reveal index
// would jump forward by the paused span.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Paused {
		return ErrNotPaused
	}
	s.pausedAccum += s.clock.Now().Sub(s.pauseStart)
	s.pauseStart = time.Time{}
	s.phase = Playing
	return nil
}

// UpdateSpeed changes the playback speed going forward. It applies
// only while actively playing.
func (s *Scheduler) UpdateSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Playing {
		return ErrNotPlaying
	}
	s.speed = speed
	return nil
}

// Reset discards all derived state and returns to Idle from any
// phase. Any in-flight tick is invalidated atomically.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.phase = Idle
	s.projection = nil
	s.revealed = 0
	s.speed = 1
	s.years = 0
	s.startTime = time.Time{}
	s.pauseStart = time.Time{}
	s.pausedAccum = 0
}

// Snapshot returns the current playback state
func (s *Scheduler) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Phase:           s.phase,
		RevealedCount:   s.revealed,
		SpeedMultiplier: s.speed,
		TimeframeYears:  s.years,
	}
	if s.projection != nil && s.projection.TotalSteps > 0 {
		state.ProgressPct = int(math.Round(100 * float64(s.revealed) / float64(s.projection.TotalSteps)))
	}
	return state
}

// Projection returns the full projection for the current run, or nil
// when idle
func (s *Scheduler) Projection() *simulation.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projection
}

// RevealedBands returns the prefix of the percentile bands revealed so
// far; the display layer charts exactly this
func (s *Scheduler) RevealedBands() simulation.Bands {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.projection == nil {
		return simulation.Bands{}
	}

	// revealed counts steps after the anchor; the anchor itself is
	// always visible
	n := s.revealed + 1
	if n > len(s.projection.Bands.P50) {
		n = len(s.projection.Bands.P50)
	}

	return simulation.Bands{
		P25: s.projection.Bands.P25[:n],
		P50: s.projection.Bands.P50[:n],
		P75: s.projection.Bands.P75[:n],
	}
}
