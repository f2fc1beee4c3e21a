// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dentrix

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PgxOpener opens sessions with pgx, treating the connection descriptor as
// a DSN. It is the shipped Opener for deployments where the practice
// database is reached through a SQL gateway.
type PgxOpener struct{}

// Open establishes a dedicated connection for one query stream.
func (PgxOpener) Open(ctx context.Context, connStr string) (Session, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, err
	}
	return &pgxSession{conn: conn}, nil
}

type pgxSession struct {
	conn *pgx.Conn
}

func (s *pgxSession) Query(ctx context.Context, sql string) (Rows, error) {
	rows, err := s.conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (s *pgxSession) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool { return r.rows.Next() }

func (r *pgxRows) Row() (Row, error) {
	raw, err := r.rows.Values()
	if err != nil {
		return Row{}, err
	}
	fields := r.rows.FieldDescriptions()
	row := Row{
		Columns: make([]string, len(fields)),
		Values:  make([]Value, len(fields)),
	}
	for i, fd := range fields {
		row.Columns[i] = fd.Name
		row.Values[i] = ValueOf(raw[i])
	}
	return row, nil
}

func (r *pgxRows) Err() error { return r.rows.Err() }

func (r *pgxRows) Close() { r.rows.Close() }
