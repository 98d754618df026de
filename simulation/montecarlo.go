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

package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/folioscope/folio-api/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/stat"
)

const monthsPerYear = 12

var (
	ErrNoHistory    = errors.New("historical series is empty")
	ErrInvalidYears = errors.New("projection horizon must be at least 1 year")
)

// Config collects the projection parameters. The defaults are policy
// values; tests override them to exercise both the measured and
// fallback branches.
type Config struct {
	// Paths is the number of independent simulated trajectories
	Paths int

	// SamplePaths is the number of raw paths retained for display
	SamplePaths int

	// DefaultStdev is assumed when history is too short to measure a
	// monthly return deviation
	DefaultStdev float64

	// Seed makes the projection reproducible when non-zero
	Seed int64
}

// DefaultConfig returns the configured projection parameters, falling
// back to 30 paths, 5 retained samples, and a 2% monthly deviation
func DefaultConfig() Config {
	cfg := Config{
		Paths:        30,
		SamplePaths:  5,
		DefaultStdev: 0.02,
	}
	if viper.IsSet("simulation.paths") {
		cfg.Paths = viper.GetInt("simulation.paths")
	}
	if viper.IsSet("simulation.sample_paths") {
		cfg.SamplePaths = viper.GetInt("simulation.sample_paths")
	}
	if viper.IsSet("simulation.default_stdev") {
		cfg.DefaultStdev = viper.GetFloat64("simulation.default_stdev")
	}
	return cfg
}

// Path is one simulated future trajectory
type Path []portfolio.ValuePoint

// Bands holds the p25/p50/p75 cross-sections of the simulated
// ensemble; all three have the same length and dates
type Bands struct {
	P25 Path `json:"p25"`
	P50 Path `json:"p50"`
	P75 Path `json:"p75"`
}

// Projection is the result of a Monte Carlo run. It describes the
// statistical character of plausible futures, not a forecast.
type Projection struct {
	Anchor      portfolio.ValuePoint `json:"anchor"`
	TotalSteps  int                  `json:"totalSteps"`
	MeanReturn  float64              `json:"meanReturn"`
	StdevReturn float64              `json:"stdevReturn"`
	Bands       Bands                `json:"bands"`
	SamplePaths []Path               `json:"samplePaths"`
}

// Engine generates Monte Carlo projections seeded from the statistical
// character of a historical value series
type Engine struct {
	cfg Config
}

// NewEngine creates a projection engine with the given configuration
func NewEngine(cfg Config) *Engine {
	if cfg.Paths < 1 {
		cfg.Paths = 1
	}
	if cfg.SamplePaths > cfg.Paths {
		cfg.SamplePaths = cfg.Paths
	}
	return &Engine{cfg: cfg}
}

// Project simulates years*12 monthly steps across cfg.Paths
// independent trajectories and reduces them to percentile bands. Paths
// are computed concurrently; each path owns its own random source so
// no mutable state is shared until the index-aligned reduction.
func (e *Engine) Project(ctx context.Context, history portfolio.ValueSeries, years int) (*Projection, error) {
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	if years < 1 {
		return nil, ErrInvalidYears
	}

	meanReturn, stdevReturn := e.monthlyStats(history)
	anchor := history[len(history)-1]
	totalSteps := years * monthsPerYear

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	paths := make([]Path, e.cfg.Paths)
	var wg sync.WaitGroup
	for ii := range paths {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(idx)))
			paths[idx] = simulatePath(rng, anchor, totalSteps, meanReturn, stdevReturn)
		}(ii)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projection := &Projection{
		Anchor:      anchor,
		TotalSteps:  totalSteps,
		MeanReturn:  meanReturn,
		StdevReturn: stdevReturn,
		Bands:       reduceBands(paths),
		SamplePaths: samplePaths(paths, e.cfg.SamplePaths),
	}

	log.Debug().Int("Paths", len(paths)).Int("TotalSteps", totalSteps).
		Float64("MeanReturn", meanReturn).Float64("StdevReturn", stdevReturn).
		Msg("computed monte carlo projection")

	return projection, nil
}

// monthlyStats resamples the historical series to month-level returns
// and measures their mean and deviation. When fewer than 2 monthly
// returns exist the configured default deviation applies.
func (e *Engine) monthlyStats(history portfolio.ValueSeries) (float64, float64) {
	rets := monthlyReturns(history)
	if len(rets) < 2 {
		mean := 0.0
		if len(rets) == 1 {
			mean = rets[0]
		}
		return mean, e.cfg.DefaultStdev
	}
	return stat.Mean(rets, nil), stat.StdDev(rets, nil)
}

// monthlyReturns collapses a daily value series into month-over-month
// returns using the last observation of each month
func monthlyReturns(history portfolio.ValueSeries) []float64 {
	rets := make([]float64, 0, len(history)/20+1)
	lastMonth := history[0].Time.Month()
	last := history[0]
	prev := history[0]
	for _, curr := range history {
		if curr.Time.Month() != lastMonth {
			if last.Value > 0 {
				rets = append(rets, prev.Value/last.Value-1.0)
			}
			last = prev
			lastMonth = curr.Time.Month()
		}
		prev = curr
	}
	return rets
}

// simulatePath walks one trajectory forward from the anchor. Each step
// draws a Gaussian variate via the Box-Muller transform.
func simulatePath(rng *rand.Rand, anchor portfolio.ValuePoint, totalSteps int, meanReturn float64, stdevReturn float64) Path {
	path := make(Path, 0, totalSteps+1)
	path = append(path, anchor)

	value := anchor.Value
	for step := 1; step <= totalSteps; step++ {
		u1 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}
		u2 := rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		value *= 1 + meanReturn + z*stdevReturn
		path = append(path, portfolio.ValuePoint{
			Time:  anchor.Time.AddDate(0, step, 0),
			Value: value,
		})
	}

	return path
}

// reduceBands computes the p25/p50/p75 percentile at every time step
// using linear interpolation between the bracketing order statistics
func reduceBands(paths []Path) Bands {
	if len(paths) == 0 {
		return Bands{}
	}

	steps := len(paths[0])
	bands := Bands{
		P25: make(Path, steps),
		P50: make(Path, steps),
		P75: make(Path, steps),
	}

	values := make([]float64, len(paths))
	for ii := 0; ii < steps; ii++ {
		for jj, path := range paths {
			values[jj] = path[ii].Value
		}
		sort.Float64s(values)

		when := paths[0][ii].Time
		bands.P25[ii] = portfolio.ValuePoint{Time: when, Value: stat.Quantile(0.25, stat.LinInterp, values, nil)}
		bands.P50[ii] = portfolio.ValuePoint{Time: when, Value: stat.Quantile(0.50, stat.LinInterp, values, nil)}
		bands.P75[ii] = portfolio.ValuePoint{Time: when, Value: stat.Quantile(0.75, stat.LinInterp, values, nil)}
	}

	return bands
}

// samplePaths retains count paths spaced evenly by final-value rank
// (min, p25, median, p75, max for the default count of 5). This is a
// presentation convenience, not part of the statistical contract.
func samplePaths(paths []Path, count int) []Path {
	if count <= 0 || len(paths) == 0 {
		return nil
	}
	if count > len(paths) {
		count = len(paths)
	}

	byFinal := make([]Path, len(paths))
	copy(byFinal, paths)
	sort.Slice(byFinal, func(i, j int) bool {
		return byFinal[i][len(byFinal[i])-1].Value < byFinal[j][len(byFinal[j])-1].Value
	})

	samples := make([]Path, 0, count)
	if count == 1 {
		return append(samples, byFinal[0])
	}
	for ii := 0; ii < count; ii++ {
		idx := ii * (len(byFinal) - 1) / (count - 1)
		samples = append(samples, byFinal[idx])
	}
	return samples
}
