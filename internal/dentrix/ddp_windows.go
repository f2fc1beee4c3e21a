// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build windows

package dentrix

import (
	"context"
	"errors"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// Registry keys written by the installer.
const (
	regCommonPath  = `SOFTWARE\Fluidic ML, INC.\Gain`
	regKeyAuthFile = "auth_key_file"
	regKeyDtxPath  = "dentrix_exe_path"
)

const dtxDLL = "Dentrix.API.dll"

// ddpVendor calls into the vendor DLL installed alongside Dentrix.
type ddpVendor struct {
	dll             *windows.LazyDLL
	registerUser    *windows.LazyProc
	getConnString   *windows.LazyProc
	defaultAuthFile string
}

// PlatformVendor locates Dentrix.API.dll through the installer's registry
// keys and binds the DDP entry points. The DLL itself is loaded lazily on
// first use.
func PlatformVendor() (Vendor, error) {
	dtxPath, err := regValue(regKeyDtxPath)
	if err != nil {
		return nil, err
	}
	authFile, err := regValue(regKeyAuthFile)
	if err != nil {
		return nil, err
	}
	dll := windows.NewLazyDLL(filepath.Join(dtxPath, dtxDLL))
	return &ddpVendor{
		dll:             dll,
		registerUser:    dll.NewProc("DENTRIXAPI_RegisterUser"),
		getConnString:   dll.NewProc("DENTRIXAPI_GetConnectionString"),
		defaultAuthFile: authFile,
	}, nil
}

func regValue(name string) (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, regCommonPath, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer key.Close()
	value, _, err := key.GetStringValue(name)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.New("missing registry key " + name)
	}
	return value, nil
}

// Register invokes DENTRIXAPI_RegisterUser with the auth key file. The DLL
// call is synchronous; it is short enough that ctx is only checked before
// dispatch.
func (v *ddpVendor) Register(ctx context.Context, keyFile string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keyFile == "" {
		keyFile = v.defaultAuthFile
	}
	if err := v.registerUser.Find(); err != nil {
		return err
	}
	arg := ansi(keyFile)
	status, _, _ := v.registerUser.Call(uintptr(unsafe.Pointer(&arg[0])))
	if code := RUCode(int32(status)); code != RUSuccess {
		return &RegistrationError{Code: code, AuthFile: keyFile}
	}
	return nil
}

const connStringSize = 512

// ConnString invokes DENTRIXAPI_GetConnectionString for the integration
// user.
func (v *ddpVendor) ConnString(ctx context.Context, user, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := v.getConnString.Find(); err != nil {
		return "", err
	}
	userArg := ansi(user)
	passArg := ansi(password)
	buf := make([]byte, connStringSize)
	v.getConnString.Call(
		uintptr(unsafe.Pointer(&userArg[0])),
		uintptr(unsafe.Pointer(&passArg[0])),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(connStringSize),
	)
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// ansi returns a NUL-terminated byte string for LPStr arguments.
func ansi(s string) []byte {
	return append([]byte(s), 0)
}
