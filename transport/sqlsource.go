/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package transport

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// SQLSeedParams is the Construct parameter blob a "sqlseed" ds_type
// expects, JSON-encoded. Grounded on storage/mysql_import.go's
// mysql_import builtin, generalized from "import into MemCP's own column
// store" to "seed a far-memory array one row per object" — there is no
// schema/column/constraint step here, since a far-memory object has no
// typed columns, just opaque bytes.
type SQLSeedParams struct {
	Driver string `json:"driver"` // "mysql" or "postgres"
	DSN    string `json:"dsn"`
	Query  string `json:"query"`
}

// SQLSeedRow is one exported row, JSON-marshaled column name -> value, the
// same shape mysqlToScmer's per-row conversion settles on before an insert
// — except there is no destination column typing to reconcile it with.
type SQLSeedRow map[string]any

// SQLSeed streams the result of Query against a SQL source and writes one
// object per row through objectWriter, keyed by a dense 0-based counter.
// The caller supplies objectWriter bound to a specific ds_id (typically a
// freshly Construct-ed array instance), so this function has no
// dependency on the server's instance registry.
func SQLSeed(ctx context.Context, params SQLSeedParams, objectWriter func(objID []byte, data []byte) error) (int, error) {
	db, err := sql.Open(params.Driver, params.DSN)
	if err != nil {
		return 0, fmt.Errorf("transport: opening %s source: %w", params.Driver, err)
	}
	defer db.Close()
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("transport: pinging %s source: %w", params.Driver, err)
	}

	rows, err := db.QueryContext(ctx, params.Query)
	if err != nil {
		return 0, fmt.Errorf("transport: querying %s source: %w", params.Driver, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		row := make(SQLSeedRow, len(cols))
		for i, c := range cols {
			row[c] = sqlToJSONSafe(raw[i])
		}
		data, err := json.Marshal(row)
		if err != nil {
			return n, fmt.Errorf("transport: marshaling row %d: %w", n, err)
		}
		objID := denseObjID(n)
		if err := objectWriter(objID, data); err != nil {
			return n, fmt.Errorf("transport: writing row %d: %w", n, err)
		}
		n++
	}
	return n, rows.Err()
}

// sqlToJSONSafe converts a database/sql scan result into something
// encoding/json can marshal without special-casing, mirroring
// mysql_import.go's mysqlToScmer conversion but targeting plain JSON
// instead of an scm.Scmer value.
func sqlToJSONSafe(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return x
	}
}

func denseObjID(idx int) []byte {
	return []byte(fmt.Sprintf("%d", idx))
}
