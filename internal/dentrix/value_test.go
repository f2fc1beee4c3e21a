// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dentrix

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValueOf(t *testing.T) {
	when := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
		want Kind
	}{
		{name: "nil", raw: nil, want: KindNull},
		{name: "int64", raw: int64(42), want: KindInt},
		{name: "int32", raw: int32(7), want: KindInt},
		{name: "bool", raw: true, want: KindInt},
		{name: "float64", raw: 3.25, want: KindFloat},
		{name: "string", raw: "smith", want: KindString},
		{name: "time", raw: when, want: KindTime},
		{name: "bytes", raw: []byte{0x01}, want: KindBytes},
		{name: "unknown type renders as string", raw: struct{ X int }{1}, want: KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueOf(tt.raw).Kind(); got != tt.want {
				t.Errorf("ValueOf(%v).Kind() = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRowMarshalPreservesColumnOrder(t *testing.T) {
	row := Row{
		Columns: []string{"zeta", "alpha", "when"},
		Values: []Value{
			Int(1),
			Null(),
			Time(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)),
		},
	}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"zeta":1,"alpha":null,"when":"2025-03-14T09:26:53Z"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRegistrationErrorMessage(t *testing.T) {
	err := &RegistrationError{Code: RUInvalidCert, AuthFile: "gain.dtxkey"}
	want := "dentrix registration failed (8): Invalid Certificate."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
