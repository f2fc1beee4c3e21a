// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"encoding/json"

	"gain/agent/internal/dentrix"
)

// Bus event names. Every query variant answers with its "-result" twin.
const (
	eventQuery        = "query"
	eventAdapterQuery = "adapter-query"
	eventJWTQuery     = "jwt-query"
	resultSuffix      = "-result"
)

// envelope frames every message on the bus socket.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// queryEvent is the payload of "query" and "adapter-query".
type queryEvent struct {
	ID    int64  `json:"id"`
	Query string `json:"query"`
}

// jwtQueryEvent is the higher-trust variant carrying a correlation nonce.
type jwtQueryEvent struct {
	UUID  string `json:"uuid"`
	Nonce int64  `json:"nonce"`
	Query string `json:"query"`
}

// queryResult answers "query" and "adapter-query". One is emitted per row
// plus one terminal with a null value.
type queryResult struct {
	ID      int64        `json:"id"`
	Value   *dentrix.Row `json:"value"`
	Status  int          `json:"status"`
	Message string       `json:"message,omitempty"`
}

// jwtQueryResult answers "jwt-query", echoing the nonce.
type jwtQueryResult struct {
	UUID    string       `json:"uuid"`
	Nonce   int64        `json:"nonce"`
	Value   *dentrix.Row `json:"value"`
	Status  int          `json:"status"`
	Message string       `json:"message,omitempty"`
}
