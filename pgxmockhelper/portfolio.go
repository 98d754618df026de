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

// Package pgxmockhelper builds pgxmock expectations for the portfolio
// persistence queries so tests don't repeat transaction boilerplate.
package pgxmockhelper

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
)

// PortfolioRow is one row of the portfolios table as the persistence
// layer scans it; Holdings is the raw JSONB document
type PortfolioRow struct {
	ID          uuid.UUID
	Name        string
	Holdings    []byte
	Created     time.Time
	LastChanged time.Time
}

// PortfolioRows converts rows into the pgxmock result set returned by
// the portfolio select statements
func PortfolioRows(rows ...PortfolioRow) *pgxmock.Rows {
	r := pgxmock.NewRows([]string{"id", "name", "holdings", "created", "lastchanged"})
	for _, row := range rows {
		r.AddRow(row.ID, row.Name, row.Holdings, row.Created, row.LastChanged)
	}
	return r
}

// MockPortfolioLoad expects a single-portfolio select returning rows
func MockPortfolioLoad(db pgxmock.PgxConnIface, rows *pgxmock.Rows) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT id, name, holdings, created, lastchanged FROM portfolios WHERE").
		WillReturnRows(rows)
	db.ExpectCommit()
}

// MockPortfolioLoadMiss expects a single-portfolio select that finds
// nothing; the transaction rolls back
func MockPortfolioLoadMiss(db pgxmock.PgxConnIface) {
	db.ExpectBegin()
	// pgxmock v1 cannot scan an empty rowset through QueryRow; a miss
	// must be expressed as pgx.ErrNoRows
	db.ExpectQuery("SELECT id, name, holdings, created, lastchanged FROM portfolios WHERE").
		WillReturnError(pgx.ErrNoRows)
	db.ExpectRollback()
}

// MockPortfolioList expects the filtered list select returning rows
func MockPortfolioList(db pgxmock.PgxConnIface, rows *pgxmock.Rows) {
	db.ExpectBegin()
	db.ExpectQuery(`select "id", "name", "holdings", "created", "lastchanged" from "portfolios"`).
		WillReturnRows(rows)
	db.ExpectCommit()
}

// MockPortfolioSave expects the insert-or-update statement
func MockPortfolioSave(db pgxmock.PgxConnIface) {
	db.ExpectBegin()
	db.ExpectExec("INSERT INTO portfolios").
		WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
	db.ExpectCommit()
}

// MockPortfolioDelete expects the delete statement affecting n rows
func MockPortfolioDelete(db pgxmock.PgxConnIface, n int64) {
	db.ExpectBegin()
	db.ExpectExec("DELETE FROM portfolios WHERE").
		WillReturnResult(pgxmock.NewResult("DELETE", n))
	db.ExpectCommit()
}
