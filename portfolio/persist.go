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
	"time"

	"github.com/folioscope/folio-api/database"
	"github.com/folioscope/folio-api/filter"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LoadPortfolio reads a saved portfolio scoped to the owning user
func LoadPortfolio(ctx context.Context, portfolioID uuid.UUID, userID string) (*Portfolio, error) {
	subLog := log.With().Str("PortfolioID", portfolioID.String()).Str("UserID", userID).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	sql := `SELECT id, name, holdings, created, lastchanged FROM portfolios WHERE id=$1 AND userid=$2`
	row := trx.QueryRow(ctx, sql, portfolioID, userID)

	p := Portfolio{
		UserID: userID,
	}
	var holdingsJSON []byte
	if err := row.Scan(&p.ID, &p.Name, &holdingsJSON, &p.Created, &p.LastChanged); err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Warn().Err(err).Msg("portfolio load failed")
		return nil, ErrPortfolioNotFound
	}

	if err := json.Unmarshal(holdingsJSON, &p.Holdings); err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Error().Stack().Err(err).Msg("could not unmarshal holdings")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	return &p, nil
}

// listColumns are the columns callers may filter on
var listColumns = map[string]bool{
	"userid":      true,
	"name":        true,
	"created":     true,
	"lastchanged": true,
}

// ListPortfolios returns the user's saved portfolios ordered by name
// then creation time. where holds optional "[OP].[value]" filter
// expressions keyed by column (e.g. name -> "ilike.%retirement%").
func ListPortfolios(ctx context.Context, userID string, where map[string]string) ([]*Portfolio, error) {
	subLog := log.With().Str("UserID", userID).Logger()

	clauses := map[string]string{
		"userid": "eq." + userID,
	}
	for k, v := range where {
		clauses[k] = v
	}

	sql, args, err := filter.BuildQuery("portfolios",
		[]string{"id", "name", "holdings", "created", "lastchanged"},
		clauses, listColumns, "name, created")
	if err != nil {
		subLog.Warn().Err(err).Msg("could not build portfolio list query")
		return nil, err
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	rows, err := trx.Query(ctx, sql, args...)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Warn().Err(err).Msg("portfolio list failed")
		return nil, err
	}

	portfolios := []*Portfolio{}
	for rows.Next() {
		p := Portfolio{
			UserID: userID,
		}
		var holdingsJSON []byte
		if err := rows.Scan(&p.ID, &p.Name, &holdingsJSON, &p.Created, &p.LastChanged); err != nil {
			subLog.Warn().Err(err).Msg("portfolio scan failed")
			continue
		}
		if err := json.Unmarshal(holdingsJSON, &p.Holdings); err != nil {
			subLog.Warn().Err(err).Msg("could not unmarshal holdings")
			continue
		}
		portfolios = append(portfolios, &p)
	}

	if err := rows.Err(); err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Warn().Err(err).Msg("portfolio list read failed")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	return portfolios, nil
}

// Save inserts a new portfolio or updates an existing one
func (p *Portfolio) Save(ctx context.Context) error {
	subLog := log.With().Str("PortfolioID", p.ID.String()).Str("UserID", p.UserID).Logger()

	if err := Validate(p.Holdings); err != nil {
		return err
	}

	holdingsJSON, err := json.Marshal(p.Holdings)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not marshal holdings")
		return err
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return err
	}

	now := time.Now()
	sql := `INSERT INTO portfolios ("id", "userid", "name", "holdings", "created", "lastchanged")
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET name=$3, holdings=$4, lastchanged=$6`
	if _, err := trx.Exec(ctx, sql, p.ID, p.UserID, p.Name, holdingsJSON, now, now); err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Warn().Err(err).Msg("portfolio save failed")
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return err
	}

	p.LastChanged = now
	if p.Created.IsZero() {
		p.Created = now
	}

	return nil
}

// DeletePortfolio removes a saved portfolio scoped to the owning user
func DeletePortfolio(ctx context.Context, portfolioID uuid.UUID, userID string) error {
	subLog := log.With().Str("PortfolioID", portfolioID.String()).Str("UserID", userID).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return err
	}

	sql := `DELETE FROM portfolios WHERE id=$1 AND userid=$2`
	tag, err := trx.Exec(ctx, sql, portfolioID, userID)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Warn().Err(err).Msg("portfolio delete failed")
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrPortfolioNotFound
	}

	return nil
}
