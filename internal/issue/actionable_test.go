// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "vendor modules"},
			want: "failed to vendor modules",
		},
		{
			name: "with resource and cause",
			err:  wrapped(t, errors.New("no such file"), "read import map", "./importMap.json"),
			want: "failed to read import map: ./importMap.json: no such file",
		},
		{
			name: "with cause",
			err:  wrapped(t, errors.New("boom"), "compile sources", ""),
			want: "failed to compile sources: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func wrapped(t *testing.T, err error, operation, resource string) *ActionableError {
	t.Helper()
	var ae *ActionableError
	if !errors.As(Wrap(OutputNotWritableId, err, operation, resource), &ae) {
		t.Fatalf("Wrap() did not return an *ActionableError")
	}
	return ae
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap(OutputNotWritableId, nil, "x", "y") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	cause := errors.New("permission denied")
	err := Wrap(VendorWriteFailedId, cause, "vendor remote modules", "dist/vendor")
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Wrap() = %T", err)
	}
	if !errors.Is(err, cause) {
		t.Error("error chain lost the cause")
	}
	if got := ae.Issue(); got == nil || got.Id() != VendorWriteFailedId {
		t.Errorf("Issue() = %v", got)
	}
	if ae.HasSuggestions() {
		t.Errorf("unexpected suggestions %v", ae.Suggestions)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("unexpected token")
	err := NewErrorContext().
		WithOperation("read import map").
		WithResource("./importMap.json").
		WithSuggestion("Check the JSON syntax").
		WithSuggestion("Remove duplicate keys").
		WithSuggestion("Quote every address").
		WithIssue(ImportMapInvalidId).
		Wrap(fmt.Errorf("parse: %w", cause)).
		Build()

	if err == nil {
		t.Fatal("Build() returned nil")
	}
	if !errors.Is(err, cause) {
		t.Error("error chain lost the cause")
	}
	if len(err.Suggestions) != 3 || !err.HasSuggestions() {
		t.Errorf("expected 3 suggestions, got %v", err.Suggestions)
	}
	if got := err.Issue(); got == nil || got.Id() != ImportMapInvalidId {
		t.Errorf("Issue() = %v", got)
	}

	if NewErrorContext().Build() != nil {
		t.Error("Build() without operation should be nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should be nil")
	}
	if (&ActionableError{Operation: "x"}).Issue() != nil {
		t.Error("Issue() without IssueID should be nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := NewErrorContext().
		WithOperation("fetch remote module").
		WithResource("https://esm.sh/react").
		WithSuggestion("Check your network connection").
		Wrap(fmt.Errorf("dial: %w", inner)).
		Build()

	short := err.Format(false)
	if !strings.Contains(short, "• Check your network connection") {
		t.Errorf("Format(false) missing suggestion:\n%s", short)
	}
	if strings.Contains(short, "Error chain:") {
		t.Errorf("Format(false) should not include the error chain:\n%s", short)
	}

	verbose := err.Format(true)
	for _, want := range []string{"Error chain:", "1. dial: connection refused", "2. connection refused"} {
		if !strings.Contains(verbose, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, verbose)
		}
	}
}
