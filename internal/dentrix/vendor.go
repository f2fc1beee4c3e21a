// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dentrix supervises the agent's connection to the local Dentrix
// database and streams query results with cancellation-aware semantics.
//
// The vendor DDP library is abstracted behind the Vendor interface: register
// with a key file, then obtain a connection string. The platform adapter in
// ddp_windows.go calls into Dentrix.API.dll; on other platforms registration
// is unavailable and the connection string arrives from the settings
// application over IPC instead.
package dentrix

import (
	"context"
	"fmt"
)

// RUCode is a DENTRIXAPI_RegisterUser status code.
type RUCode int

const (
	RUSuccess             RUCode = 0
	RUUserCanceled        RUCode = 1
	RUInvalidAuth         RUCode = 2
	RUInvalidFile         RUCode = 3
	RUNoConnect           RUCode = 4
	RULocalRightsUnsecure RUCode = 5
	RUUserInsertFailed    RUCode = 6
	RUUserAccessRevoked   RUCode = 7
	RUInvalidCert         RUCode = 8
	RUDatabaseExclusive   RUCode = 9
	RUUnknownError        RUCode = -1
	RUUnset               RUCode = -2
)

// Message returns the vendor's description of the code. Messages are copied
// from DDP documentation verbatim.
func (c RUCode) Message(authFilePath string) string {
	switch c {
	case RUUserCanceled:
		return "User canceled Auth"
	case RUInvalidAuth:
		return "Invalid Auth request"
	case RUInvalidFile:
		return "Invalid File Auth File " + authFilePath
	case RUNoConnect:
		return "Unable to connect to DB."
	case RULocalRightsUnsecure:
		return "Local admin rights could not be secured."
	case RUUserInsertFailed:
		return "User insertion failed."
	case RUUserAccessRevoked:
		return "User access has been revoked."
	case RUInvalidCert:
		return "Invalid Certificate."
	case RUDatabaseExclusive:
		return "Database is in exclusive mode."
	case RUUnknownError:
		return "General Failure to load local requirements"
	default:
		return ""
	}
}

// RegistrationError reports a non-success vendor registration status.
type RegistrationError struct {
	Code     RUCode
	AuthFile string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("dentrix registration failed (%d): %s", e.Code, e.Code.Message(e.AuthFile))
}

// Vendor is the DDP capability: register with the key file, then obtain a
// connection string for the practice database.
type Vendor interface {
	// Register authorizes this process against the local Dentrix
	// installation. A non-success status is returned as a
	// *RegistrationError.
	Register(ctx context.Context, keyFile string) error
	// ConnString returns the connection string for the given DDP user.
	ConnString(ctx context.Context, user, password string) (string, error)
}
