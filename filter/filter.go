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

package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgsql"
	"github.com/jackc/pgx/v4"
)

var (
	ErrEmptyFrom         = errors.New("'from' cannot be empty")
	ErrMalformedWhere    = errors.New("where clauses must take the form [OP].[value]")
	ErrUnknownOperator   = errors.New("unrecognized operator")
	ErrUnsupportedColumn = errors.New("column not allowed in filter")
)

var operators = map[string]string{
	"eq":    "%s = ?",
	"neq":   "%s <> ?",
	"gt":    "%s > ?",
	"gte":   "%s >= ?",
	"lt":    "%s < ?",
	"lte":   "%s <= ?",
	"like":  "%s like ?",
	"ilike": "%s ilike ?",
}

// BuildQuery constructs a parameterized SELECT statement. fields are
// sanitized identifiers to select; where maps column names to
// "[OP].[value]" filter expressions restricted to allowedColumns.
func BuildQuery(from string, fields []string, where map[string]string, allowedColumns map[string]bool, order string) (string, []interface{}, error) {
	if from == "" {
		return "", nil, ErrEmptyFrom
	}

	stmt := &pgsql.SelectStatement{}
	for _, ff := range fields {
		stmt.Select(pgx.Identifier{ff}.Sanitize())
	}
	stmt.From(pgx.Identifier{from}.Sanitize())

	for k, v := range where {
		if !allowedColumns[k] {
			return "", nil, ErrUnsupportedColumn
		}

		p := strings.SplitN(v, ".", 2)
		if len(p) != 2 {
			return "", nil, ErrMalformedWhere
		}
		op, val := p[0], p[1]

		clause, ok := operators[op]
		if !ok {
			return "", nil, ErrUnknownOperator
		}
		stmt.Where(fmt.Sprintf(clause, pgx.Identifier{k}.Sanitize()), val)
	}

	if order != "" {
		stmt.Order(order)
	}

	sql, args := pgsql.Build(stmt)
	return sql, args, nil
}
