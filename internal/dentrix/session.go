// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dentrix

import "context"

// Rows is a forward-only cursor over a query's results.
type Rows interface {
	// Next advances to the next row, returning false at exhaustion or on
	// error. After false, Err distinguishes the two.
	Next() bool
	// Row decodes the current row.
	Row() (Row, error)
	// Err returns the error that terminated iteration, if any.
	Err() error
	// Close releases the cursor. Safe to call more than once.
	Close()
}

// Session is a dedicated database session opened from a connection string.
type Session interface {
	Query(ctx context.Context, sql string) (Rows, error)
	Close(ctx context.Context) error
}

// Opener opens sessions against the practice database. The supervisor holds
// one Opener; tests and platform adapters provide their own.
type Opener interface {
	Open(ctx context.Context, connStr string) (Session, error)
}
