// SPDX-License-Identifier: MPL-2.0

package lexer

import (
	"slices"
	"testing"
)

func specifiers(m Module) []string {
	out := make([]string, 0, len(m.Imports))
	for _, imp := range m.Imports {
		out = append(out, imp.Kind.String()+":"+imp.Specifier)
	}
	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   []string
		facade bool
	}{
		{
			name: "static imports",
			text: `import React from "react";
import { useState, type FC } from 'react';
import * as path from "https://deno.land/std/path/mod.ts"
import type { Props } from "./types.ts";
const x = 1;`,
			want: []string{
				"static:react",
				"static:react",
				"static:https://deno.land/std/path/mod.ts",
				"static:./types.ts",
			},
		},
		{
			name: "facade",
			text: `/* esm.sh - react@18.2.0 */
export * from "https://esm.sh/stable/react@18.2.0/es2022/react.js";
export { default } from "https://esm.sh/stable/react@18.2.0/es2022/react.js";
`,
			want: []string{
				"reexport:https://esm.sh/stable/react@18.2.0/es2022/react.js",
				"reexport:https://esm.sh/stable/react@18.2.0/es2022/react.js",
			},
			facade: true,
		},
		{
			name: "facade with side effects",
			text: `import "https://esm.sh/stable/react@18.2.0/es2022/react.mjs";
import "https://esm.sh/v128/scheduler@0.23.0/es2022/scheduler.mjs";
export * from "https://esm.sh/v128/react-dom@18.2.0/es2022/react-dom.mjs";`,
			want: []string{
				"sideeffect:https://esm.sh/stable/react@18.2.0/es2022/react.mjs",
				"sideeffect:https://esm.sh/v128/scheduler@0.23.0/es2022/scheduler.mjs",
				"reexport:https://esm.sh/v128/react-dom@18.2.0/es2022/react-dom.mjs",
			},
			facade: true,
		},
		{
			name: "local exports are not a facade",
			text: `export * from "./a.js";
export const b = 1;`,
			want: []string{"reexport:./a.js"},
		},
		{
			name: "export list without from",
			text: `import { a } from "./a.js";
const b = a;
export { b };`,
			want: []string{"static:./a.js"},
		},
		{
			name: "imports only is not a facade",
			text: `import "./a.js";`,
			want: []string{"sideeffect:./a.js"},
		},
		{
			name: "dynamic imports",
			text: "const mod = await import(\"./lazy.ts\");\nconst other = import(`./${name}.ts`);\nimport.meta.url;",
			want: []string{"dynamic:./lazy.ts"},
		},
		{
			name: "template literal dynamic import",
			text: "const a = await import(`./x.js`);\nconst b = import( `./y.js` , { with: {} });\nconst c = import(`./${dir}/z.js`);\nimport a2 from \"./a.js\";",
			want: []string{"dynamic:./x.js", "dynamic:./y.js", "static:./a.js"},
		},
		{
			name: "comments and strings are ignored",
			text: `// import "./commented.js"
/* export * from "./block.js" */
const s = "import x from './string.js'";
const re = /import "regex.js"/g;
const t = ` + "`import ${\"./tpl.js\"} from`" + `;
import real from "./real.js";`,
			want: []string{"static:./real.js"},
		},
		{
			name: "division is not a regex",
			text: `const half = total / 2; import a from "./a.js"; const q = (x) / 3 / 4;`,
			want: []string{"static:./a.js"},
		},
		{
			name: "import attributes",
			text: `import data from "./data.json" with { type: "json" };
export * from "./mod.js";`,
			want: []string{"static:./data.json", "reexport:./mod.js"},
			facade: true,
		},
		{
			name: "member named import",
			text: `loader.import("./not-an-import.js"); export * as ns from "./ns.js";`,
			want: []string{"reexport:./ns.js"},
		},
		{
			name: "type reexport",
			text: `export type { A } from "./types.ts"; export * from "./impl.ts"`,
			want: []string{"reexport:./types.ts", "reexport:./impl.ts"},
			facade: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := Parse(tt.text)
			if got := specifiers(m); !slices.Equal(got, tt.want) {
				t.Errorf("imports = %v, want %v", got, tt.want)
			}
			if m.Facade != tt.facade {
				t.Errorf("Facade = %v, want %v", m.Facade, tt.facade)
			}
		})
	}
}

func TestImportOffsets(t *testing.T) {
	t.Parallel()

	text := `import a from "./a.js";`
	m := Default{}.Parse(text)
	if len(m.Imports) != 1 {
		t.Fatalf("imports = %v", m.Imports)
	}
	imp := m.Imports[0]
	if text[imp.Start:imp.End] != "./a.js" {
		t.Errorf("offsets select %q", text[imp.Start:imp.End])
	}
}

func TestStaticSpecifiers(t *testing.T) {
	t.Parallel()

	m := Parse(`import a from "./a.js"; import "./a.js"; export * from "./b.js"; import("./c.js");`)
	want := []string{"./a.js", "./b.js"}
	if got := m.StaticSpecifiers(); !slices.Equal(got, want) {
		t.Errorf("StaticSpecifiers() = %v, want %v", got, want)
	}
}
