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

package portfolio

import (
	"context"
	"io"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

const (
	DateIdx  = "DATE"
	ValueIdx = "VALUE"
)

// DataFrame converts the value series into a two column dataframe
// (DATE, VALUE) for charting and export
func (vs ValueSeries) DataFrame() *dataframe.DataFrame {
	dates := make([]time.Time, len(vs))
	values := make([]float64, len(vs))
	for ii, vp := range vs {
		dates[ii] = vp.Time
		values[ii] = vp.Value
	}

	timeSeries := dataframe.NewSeriesTime(DateIdx, &dataframe.SeriesInit{Size: len(vs)}, dates)
	valueSeries := dataframe.NewSeriesFloat64(ValueIdx, &dataframe.SeriesInit{Size: len(vs)}, values)
	return dataframe.NewDataFrame(timeSeries, valueSeries)
}

// ExportCSV writes the value series to w as CSV, optionally restricted
// to points on or after since
func (vs ValueSeries) ExportCSV(ctx context.Context, w io.Writer, since time.Time) error {
	filtered := vs
	if !since.IsZero() {
		filtered = vs.After(since)
	}
	return exports.ExportToCSV(ctx, w, filtered.DataFrame())
}
