// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !windows

package dentrix

import (
	"context"
	"errors"
)

// unavailableVendor stands in where the DDP library cannot be loaded. On
// these platforms the connection string arrives from the settings
// application over IPC instead of vendor registration.
type unavailableVendor struct{}

// PlatformVendor reports the DDP library as unavailable.
func PlatformVendor() (Vendor, error) {
	return unavailableVendor{}, nil
}

func (unavailableVendor) Register(ctx context.Context, keyFile string) error {
	return &RegistrationError{Code: RUUnknownError, AuthFile: keyFile}
}

func (unavailableVendor) ConnString(ctx context.Context, user, password string) (string, error) {
	return "", errors.New("dentrix DDP library unavailable on this platform")
}
