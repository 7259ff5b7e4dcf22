// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/mesozoic/mesozoic/pkg/source"
)

func TestTransform_TSX(t *testing.T) {
	t.Parallel()

	c := New(Options{})
	src := `import { useState } from "react";
type Props = { name: string };
export default function App({ name }: Props) {
  const [n] = useState<number>(0);
  return <p>{name} {n}</p>;
}
`
	out, err := c.Transform("/app/src/app.tsx", []byte(src))
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	code := string(out)

	for _, want := range []string{`from "react"`, `from "react/jsx-runtime"`} {
		if !strings.Contains(code, want) {
			t.Errorf("output missing %q:\n%s", want, code)
		}
	}
	if strings.Contains(code, "Props") {
		t.Errorf("type annotations were not removed:\n%s", code)
	}
}

func TestTransform_Options(t *testing.T) {
	t.Parallel()

	src := []byte("export const greeting: string = \"hello\";\n")

	out, err := New(Options{SourceMaps: true}).Transform("greeting.ts", src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "//# sourceMappingURL=data:application/json;base64,") {
		t.Errorf("expected an inline source map:\n%s", out)
	}

	out, err = New(Options{JSXImportSource: "preact"}).Transform("view.jsx", []byte("export const v = <b/>;\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `from "preact/jsx-runtime"`) {
		t.Errorf("expected preact runtime import:\n%s", out)
	}
}

func TestTransform_Errors(t *testing.T) {
	t.Parallel()

	c := New(Options{})

	_, err := c.Transform("broken.ts", []byte("export const = ;"))
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cerr.Filename != "broken.ts" || len(cerr.Messages) == 0 {
		t.Errorf("unexpected error %+v", cerr)
	}

	if _, err := c.Transform("styles.css", []byte("a{}")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestCompile_InPlace(t *testing.T) {
	t.Parallel()

	src := source.NewVirtual("./mod.ts", "/app", []byte("export const n: number = 1;\n"))
	if err := New(Options{}).Compile(src); err != nil {
		t.Fatal(err)
	}
	got, err := src.Read()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, ": number") || !strings.Contains(got, "const n = 1;") {
		t.Errorf("unexpected compiled output %q", got)
	}
	if !exportsN.MatchString(got) {
		t.Errorf("compiled output does not export n: %q", got)
	}
}

// exportsN matches both "export const n" and an "export { n }" clause.
var exportsN = regexp.MustCompile(`export\s+const\s+n\b|export\s*\{[^}]*\bn\b[^}]*\}`)
