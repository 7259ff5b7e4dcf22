// SPDX-License-Identifier: MPL-2.0

package load

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/mesozoic/mesozoic/pkg/patterns"
	"github.com/mesozoic/mesozoic/pkg/source"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*Fetched
	requests  []string
	policies  []Policy
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, policy Policy) (*Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, rawURL)
	f.policies = append(f.policies, policy)

	resp, ok := f.responses[rawURL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	out := *resp
	if out.URL == "" {
		out.URL = rawURL
	}
	return &out, nil
}

func newLoader(t *testing.T, opts Options) *Loader {
	t.Helper()
	l, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLoadFacadeRedirect(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{responses: map[string]*Fetched{
		"https://host/pkg": {Status: 200, Body: []byte(`export * from "https://host/real.js?v=2";`)},
		"https://host/real.js?v=2": {
			Status:  200,
			Body:    []byte(`export default 42;`),
			Headers: map[string]string{"content-type": "application/javascript"},
		},
	}}
	l := newLoader(t, Options{Fetcher: f, Policy: PolicyReload})

	res := l.Load(context.Background(), "https://host/pkg", false)
	if res.Response == nil {
		t.Fatal("Load() returned no response")
	}
	if res.Response.Specifier != "https://host/real.js" {
		t.Errorf("Specifier = %q, want https://host/real.js", res.Response.Specifier)
	}
	if string(res.Response.Content) != "export default 42;" {
		t.Errorf("Content = %q", res.Response.Content)
	}
	for _, p := range f.policies {
		if p != PolicyReload {
			t.Errorf("policy = %v, want reload", p)
		}
	}
}

func TestLoadModuleExtensionSkipsFacadeDetection(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{responses: map[string]*Fetched{
		"https://host/mod.js": {Status: 200, Body: []byte(`export * from "https://host/other.js";`)},
	}}
	l := newLoader(t, Options{Fetcher: f})

	res := l.Load(context.Background(), "https://host/mod.js", false)
	if res.Response == nil || res.Response.Specifier != "https://host/mod.js" {
		t.Fatalf("Load() = %+v", res.Response)
	}
	if len(f.requests) != 1 {
		t.Errorf("requests = %v, want one", f.requests)
	}
}

func TestLoadRemoteFailuresAreAbsent(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{responses: map[string]*Fetched{
		"https://host/404.js": {Status: 404, Body: []byte("not found")},
	}}
	l := newLoader(t, Options{Fetcher: f})

	for _, spec := range []string{"https://host/404.js", "https://host/unreachable.js", "data:text/javascript,1"} {
		if res := l.Load(context.Background(), spec, false); res.Response != nil {
			t.Errorf("Load(%q) = %+v, want absent", spec, res.Response)
		}
	}
}

func TestLoadRedirectedRemote(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{responses: map[string]*Fetched{
		"https://esm.sh/react@18.2.0?no-check=1&target=deno": {
			URL:    "https://esm.sh/stable/react@18.2.0/deno/react.mjs",
			Status: 200,
			Body:   []byte(`export default {};`),
		},
	}}
	l := newLoader(t, Options{Fetcher: f, Target: TargetDeno})

	res := l.Load(context.Background(), "https://esm.sh/react@18.2.0?dev", false)
	if res.Response == nil {
		t.Fatalf("Load() absent; requests = %v", f.requests)
	}
	if res.Response.Specifier != "https://esm.sh/stable/react@18.2.0/deno/react.mjs" {
		t.Errorf("Specifier = %q", res.Response.Specifier)
	}
}

func TestLoadDynamicIgnore(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{responses: map[string]*Fetched{
		"https://host/lazy.js": {Status: 200, Body: []byte(`export {}`)},
	}}
	l := newLoader(t, Options{Fetcher: f, DynamicImportIgnore: patterns.New("https://host/**")})

	if res := l.Load(context.Background(), "https://host/lazy.js", true); res.Response != nil {
		t.Error("ignored dynamic import was loaded")
	}
	if res := l.Load(context.Background(), "https://host/lazy.js", false); res.Response == nil {
		t.Error("static import of an ignored URL was not loaded")
	}
}

func TestLoadLocal(t *testing.T) {
	t.Parallel()

	client := source.NewVirtual("./client.tsx", "file:///app", []byte("testing"))
	l := newLoader(t, Options{Sources: source.NewSet(client)})

	for _, spec := range []string{"./client.tsx", "file:///app/client.tsx"} {
		res := l.Load(context.Background(), spec, false)
		if res.Response == nil {
			t.Fatalf("Load(%q) absent", spec)
		}
		if res.Response.Specifier != "file:///app/client.tsx" {
			t.Errorf("Specifier = %q", res.Response.Specifier)
		}
		if string(res.Response.Content) != "testing" {
			t.Errorf("Content = %q", res.Response.Content)
		}
		if res.DynamicSource != nil {
			t.Error("static load reported a dynamic source")
		}
	}

	dyn := &DynamicImports{}
	loadFn := l.GraphLoader(dyn)
	for range 2 {
		if _, err := loadFn(context.Background(), "file:///app/client.tsx", true); err != nil {
			t.Fatal(err)
		}
	}
	if dyn.Len() != 1 {
		t.Errorf("DynamicImports.Len() = %d, want 1", dyn.Len())
	}
	if _, ok := dyn.Set().FindByPath("./client.tsx"); !ok {
		t.Error("dynamic source not recorded")
	}

	if res := l.Load(context.Background(), "file:///app/missing.tsx", false); res.Response != nil {
		t.Error("missing local module loaded")
	}
}

func TestFacadeRedirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		specifier string
		content   string
		want      string
	}{
		{
			name:      "react",
			specifier: "https://esm.sh/react@18.2.0",
			content: `/* esm.sh - react@18.2.0 */
export * from "https://esm.sh/stable/react@18.2.0/es2022/react.js";
export { default } from "https://esm.sh/stable/react@18.2.0/es2022/react.js";`,
			want: "https://esm.sh/stable/react@18.2.0/es2022/react.js",
		},
		{
			name:      "react-dom",
			specifier: "https://esm.sh/react-dom@18.2.0/",
			content: `/* esm.sh - react-dom@18.2.0 */
import "https://esm.sh/stable/react@18.2.0/es2022/react.mjs";
import "https://esm.sh/v128/scheduler@0.23.0/es2022/scheduler.mjs";
export * from "https://esm.sh/v128/react-dom@18.2.0/es2022/react-dom.mjs";
export { default } from "https://esm.sh/v128/react-dom@18.2.0/es2022/react-dom.mjs";`,
			want: "https://esm.sh/v128/react-dom@18.2.0/es2022/react-dom.mjs",
		},
		{
			name:      "twind",
			specifier: "https://esm.sh/twind@0.16.17",
			content: `/* esm.sh - twind@0.16.17 */
import "https://esm.sh/v128/style-vendorizer@2.2.3/es2022/style-vendorizer.mjs";
export * from "https://esm.sh/v128/twind@0.16.17/es2022/twind.mjs";`,
			want: "https://esm.sh/v128/twind@0.16.17/es2022/twind.mjs",
		},
		{
			name:      "path absolute",
			specifier: "https://esm.sh/preact@10",
			content:   `export * from "/stable/preact@10.19.2/es2022/preact.mjs";`,
			want:      "https://esm.sh/stable/preact@10.19.2/es2022/preact.mjs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := FacadeRedirect(tt.specifier, tt.content, nil)
			if !ok || got != tt.want {
				t.Errorf("FacadeRedirect() = %q, %v, want %q", got, ok, tt.want)
			}
		})
	}

	if _, ok := FacadeRedirect("https://host/a", `export const x = 1;`, nil); ok {
		t.Error("non-facade module reported a redirect")
	}
}

func TestPrepareRequestURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		target Target
		want   string
	}{
		{"https://esm.sh/react@18.2.0?dev", TargetDeno, "https://esm.sh/react@18.2.0?no-check=1&target=deno"},
		{"https://esm.sh/react@18.2.0?dev", TargetBrowser, "https://esm.sh/react@18.2.0?no-check=1&target=es2022"},
		{"https://deno.land/x/mesozoic/mod.ts", TargetDeno, "https://deno.land/x/mesozoic/mod.ts"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := PrepareRequestURL(u, tt.target).String(); got != tt.want {
			t.Errorf("PrepareRequestURL(%q, %v) = %q, want %q", tt.in, tt.target, got, tt.want)
		}
		if u.String() != tt.in {
			t.Errorf("PrepareRequestURL modified its input: %q", u)
		}
	}
}

func TestParsePolicyAndTarget(t *testing.T) {
	t.Parallel()

	if p, err := ParsePolicy("reload"); err != nil || p != PolicyReload {
		t.Errorf("ParsePolicy(reload) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("sometimes"); err == nil {
		t.Error("ParsePolicy(sometimes) succeeded")
	}
	if tg, err := ParseTarget("Deno"); err != nil || tg != TargetDeno {
		t.Errorf("ParseTarget(Deno) = %v, %v", tg, err)
	}
	if _, err := ParseTarget("node"); err == nil {
		t.Error("ParseTarget(node) succeeded")
	}
}
