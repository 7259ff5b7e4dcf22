// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestExitCodeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "ok", value: ExitOK, wantValid: true},
		{name: "failure", value: ExitFailure, wantValid: true},
		{name: "usage", value: ExitUsage, wantValid: true},
		{name: "interrupted", value: ExitInterrupted, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Fatalf("ExitCode(%d).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if !tt.wantValid && !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("error does not wrap ErrInvalidExitCode: %v", err)
			}
		})
	}
}

func TestExitCodeIsSuccess(t *testing.T) {
	t.Parallel()

	for code, want := range map[ExitCode]bool{
		ExitOK:          true,
		ExitFailure:     false,
		ExitUsage:       false,
		ExitInterrupted: false,
	} {
		if got := code.IsSuccess(); got != want {
			t.Errorf("ExitCode(%d).IsSuccess() = %v, want %v", code, got, want)
		}
	}
}

func TestExitCodeString(t *testing.T) {
	t.Parallel()

	if got := ExitInterrupted.String(); got != "130" {
		t.Errorf("String() = %q, want %q", got, "130")
	}
}
