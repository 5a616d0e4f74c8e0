package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownTable = errors.New("unknown table")

// Row is one record of a dashboard table, keyed by column name.
type Row map[string]any

// TablesRepo serves the generic fetch_table endpoint. Table names are
// resolved against a fixed allowlist so no caller-supplied identifier
// ever reaches the SQL text.
type TablesRepo struct {
	pool    *pgxpool.Pool
	allowed map[string]struct{}
}

func NewTablesRepo(pool *pgxpool.Pool, allowedTables []string) *TablesRepo {
	allowed := make(map[string]struct{}, len(allowedTables))

	for _, name := range allowedTables {
		allowed[name] = struct{}{}
	}

	return &TablesRepo{pool: pool, allowed: allowed}
}

func (r *TablesRepo) FetchTable(ctx context.Context, name string) ([]Row, error) {
	_, ok := r.allowed[name]

	if !ok {
		return nil, ErrUnknownTable
	}

	// name is one of the configured identifiers, never raw client input.
	rows, err := r.pool.Query(ctx, `SELECT * FROM `+quoteIdentifier(name))

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	fields := rows.FieldDescriptions()
	output := make([]Row, 0)

	for rows.Next() {
		values, err := rows.Values()

		if err != nil {
			return nil, err
		}

		row := make(Row, len(fields))

		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}

		output = append(output, row)
	}

	err = rows.Err()

	if err != nil {
		return nil, err
	}

	return output, nil
}

func quoteIdentifier(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')

	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}

	return string(append(out, '"'))
}
