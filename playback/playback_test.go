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
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/folioscope/folio-api/common"
	"github.com/folioscope/folio-api/portfolio"
	"github.com/folioscope/folio-api/simulation"
)

// manualClock is driven explicitly by the test; its tickers never fire
// so tick processing happens only when the test calls for it
type manualClock struct {
	mu  sync.Mutex
	now time.Time
	ch  chan time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{
		now: start,
		ch:  make(chan time.Time),
	}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	return &manualTicker{ch: c.ch}
}

func (c *manualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) Chan() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {}

func testHistory(days int) portfolio.ValueSeries {
	start := time.Date(2021, time.January, 4, 0, 0, 0, 0, common.GetTimezone())
	series := make(portfolio.ValueSeries, 0, days)
	value := 10000.0
	for ii := 0; ii < days; ii++ {
		value *= 1.001
		series = append(series, portfolio.ValuePoint{
			Time:  start.AddDate(0, 0, ii),
			Value: value,
		})
	}
	return series
}

var _ = Describe("Playback scheduler", func() {
	var (
		ctx       context.Context
		clock     *manualClock
		scheduler *Scheduler
		startTime time.Time
	)

	const years = 2 // 24 total steps

	BeforeEach(func() {
		ctx = context.Background()
		startTime = time.Date(2023, time.June, 1, 9, 30, 0, 0, common.GetTimezone())
		clock = newManualClock(startTime)

		engine := simulation.NewEngine(simulation.Config{
			Paths:        30,
			SamplePaths:  5,
			DefaultStdev: 0.02,
			Seed:         42,
		})
		scheduler = NewScheduler(engine, clock, testHistory(400))
	})

	AfterEach(func() {
		// unblock the run goroutine
		close(clock.ch)
	})

	Context("starting playback", func() {
		It("transitions to playing with nothing revealed", func() {
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())

			state := scheduler.Snapshot()
			Expect(state.Phase).To(Equal(Playing))
			Expect(state.RevealedCount).To(Equal(0))
			Expect(state.TimeframeYears).To(Equal(years))
		})

		It("ignores a start with an empty historical series", func() {
			empty := NewScheduler(scheduler.engine, clock, portfolio.ValueSeries{})
			err := empty.Start(ctx, years, 1)
			Expect(errors.Is(err, ErrEmptyHistory)).To(BeTrue())
			Expect(empty.Snapshot().Phase).To(Equal(Idle))
		})

		It("rejects a non-positive speed", func() {
			err := scheduler.Start(ctx, years, 0)
			Expect(errors.Is(err, ErrInvalidSpeed)).To(BeTrue())
		})
	})

	Context("revealing over time", func() {
		BeforeEach(func() {
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())
		})

		It("reveals proportionally to elapsed time", func() {
			// half of the 30s base duration reveals half the steps
			now := clock.Advance(15 * time.Second)
			Expect(scheduler.tick(scheduler.generation, now)).To(BeTrue())
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(12))
			Expect(scheduler.Snapshot().ProgressPct).To(Equal(50))
		})

		It("never regresses the revealed count", func() {
			now := clock.Advance(15 * time.Second)
			Expect(scheduler.tick(scheduler.generation, now)).To(BeTrue())
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(12))

			// a tick carrying an older timestamp must not roll back
			Expect(scheduler.tick(scheduler.generation, startTime.Add(5*time.Second))).To(BeTrue())
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(12))
		})

		It("completes when every step is revealed", func() {
			now := clock.Advance(30 * time.Second)
			Expect(scheduler.tick(scheduler.generation, now)).To(BeFalse())

			state := scheduler.Snapshot()
			Expect(state.Phase).To(Equal(Complete))
			Expect(state.RevealedCount).To(Equal(24))
			Expect(state.ProgressPct).To(Equal(100))
		})

		It("clamps the reveal index at the total step count", func() {
			now := clock.Advance(5 * time.Minute)
			scheduler.tick(scheduler.generation, now)
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(24))
		})

		It("reveals the band prefix including the anchor", func() {
			now := clock.Advance(15 * time.Second)
			scheduler.tick(scheduler.generation, now)

			bands := scheduler.RevealedBands()
			Expect(bands.P50).To(HaveLen(13))
			Expect(bands.P25).To(HaveLen(13))
			Expect(bands.P75).To(HaveLen(13))
		})
	})

	Context("pausing and resuming", func() {
		BeforeEach(func() {
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())
		})

		It("excludes the paused span from elapsed time", func() {
			now := clock.Advance(10 * time.Second)
			scheduler.tick(scheduler.generation, now)
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(8))

			Expect(scheduler.Pause()).To(Succeed())
			Expect(scheduler.Snapshot().Phase).To(Equal(Paused))

			// ticks while paused change nothing
			now = clock.Advance(10 * time.Second)
			Expect(scheduler.tick(scheduler.generation, now)).To(BeTrue())
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(8))

			Expect(scheduler.Resume()).To(Succeed())

			// 10s paused; 15s of effective play time total
			now = clock.Advance(5 * time.Second)
			scheduler.tick(scheduler.generation, now)
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(12))
		})

		It("rejects pause when not playing", func() {
			Expect(scheduler.Pause()).To(Succeed())
			Expect(errors.Is(scheduler.Pause(), ErrNotPlaying)).To(BeTrue())
		})

		It("rejects resume when not paused", func() {
			Expect(errors.Is(scheduler.Resume(), ErrNotPaused)).To(BeTrue())
		})
	})

	Context("changing speed", func() {
		BeforeEach(func() {
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())
		})

		It("applies the new multiplier to subsequent ticks", func() {
			Expect(scheduler.UpdateSpeed(2)).To(Succeed())

			// at 2x the full reveal takes 15s
			now := clock.Advance(15 * time.Second)
			scheduler.tick(scheduler.generation, now)
			Expect(scheduler.Snapshot().Phase).To(Equal(Complete))
		})

		It("rejects speed changes while paused", func() {
			Expect(scheduler.Pause()).To(Succeed())
			Expect(errors.Is(scheduler.UpdateSpeed(2), ErrNotPlaying)).To(BeTrue())
		})

		It("rejects a non-positive multiplier", func() {
			Expect(errors.Is(scheduler.UpdateSpeed(-1), ErrInvalidSpeed)).To(BeTrue())
		})
	})

	Context("resetting", func() {
		It("returns to idle from any phase", func() {
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())
			scheduler.Reset()

			state := scheduler.Snapshot()
			Expect(state.Phase).To(Equal(Idle))
			Expect(state.RevealedCount).To(Equal(0))
			Expect(scheduler.Projection()).To(BeNil())
		})

		It("invalidates in-flight ticks from the previous run", func() {
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())
			staleGeneration := scheduler.generation

			scheduler.Reset()
			Expect(scheduler.Start(ctx, years, 1)).To(Succeed())

			now := clock.Advance(15 * time.Second)
			Expect(scheduler.tick(staleGeneration, now)).To(BeFalse())
			Expect(scheduler.Snapshot().RevealedCount).To(Equal(0))
		})
	})
})
