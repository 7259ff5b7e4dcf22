// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog guide.
type Id int

const (
	ConfigNotFoundId Id = iota + 1
	ConfigInvalidId
	ImportMapNotFoundId
	ImportMapInvalidId
	UnresolvedSpecifierId
	GraphInconsistentId
	RemoteFetchFailedId
	VendorWriteFailedId
	CompileFailedId
	OutputNotWritableId
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown guide for one failure mode.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide for a terminal. stylePath is a glamour style name
// ("dark", "light", "notty", ...) or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# Configuration file not found!

The configuration file given with ` + "`--config`" + ` does not exist.

## Things you can try:
- Check the path for typos
- Run without ` + "`--config`" + ` to pick up ` + "`mesozoic.{cue,toml,yaml,yml,json}`" + ` from the root
- Print the effective configuration:
~~~
$ mesozoic config show
~~~`,
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# Invalid configuration!

The configuration could not be parsed or failed validation.

## Common issues:
- ` + "`root`" + ` or ` + "`output`" + ` is empty
- ` + "`target`" + ` is not one of ` + "`browser`" + ` or ` + "`deno`" + `
- A pattern in ` + "`ignore`" + `, ` + "`compile`" + ` or ` + "`content_hash`" + ` is malformed
- A CUE value does not match the schema

## Example:
~~~yaml
root: .
output: dist
import_map: importMap.json
target: browser
entrypoints:
  - ./client.tsx
vendor:
  enabled: true
~~~`,
	}

	importMapNotFoundIssue = &Issue{
		id: ImportMapNotFoundId,
		mdMsg: `
# Import map not found!

Every build starts from an import map in the source root.

## Things you can try:
- Create a minimal one:
~~~json
{ "imports": {} }
~~~
- Point ` + "`import_map`" + ` at the right file`,
		extLinks: []HttpLink{"https://github.com/WICG/import-maps"},
	}

	importMapInvalidIssue = &Issue{
		id: ImportMapInvalidId,
		mdMsg: `
# Invalid import map!

The import map is not a JSON object with ` + "`imports`" + ` and optional ` + "`scopes`" + `.
Comments and trailing commas are allowed.

## Things you can try:
- Make sure every address is a string
- Make sure addresses of keys ending in ` + "`/`" + ` also end in ` + "`/`",
		extLinks: []HttpLink{"https://github.com/WICG/import-maps"},
	}

	unresolvedSpecifierIssue = &Issue{
		id: UnresolvedSpecifierId,
		mdMsg: `
# Unresolved specifier!

A bare specifier such as ` + "`react`" + ` has no entry in the import map.

## Things you can try:
- Add an entry for it:
~~~json
{ "imports": { "react": "https://esm.sh/react@18.2.0" } }
~~~
- Check the resolution on its own:
~~~
$ mesozoic resolve react --referrer ./client.tsx
~~~`,
	}

	graphInconsistentIssue = &Issue{
		id: GraphInconsistentId,
		mdMsg: `
# Module graph is inconsistent!

The import map could not be built because the module graph refers to a module
that was never loaded or to a local file that is not part of the build.

## Things you can try:
- Make sure local imports are not excluded by ` + "`ignore`" + `
- Rebuild with ` + "`--reload`" + ` to refetch remote modules`,
	}

	remoteFetchFailedIssue = &Issue{
		id: RemoteFetchFailedId,
		mdMsg: `
# Remote module could not be fetched!

## Things you can try:
- Check your network connection
- Rebuild with ` + "`--reload`" + ` to bypass the cache
- Remove a corrupt cache with ` + "`rm -rf $MESOZOIC_CACHE_DIR`",
	}

	vendorWriteFailedIssue = &Issue{
		id: VendorWriteFailedId,
		mdMsg: `
# Vendored module could not be written!

## Things you can try:
- Make sure the output directory is writable
- Remove the output directory and rebuild`,
	}

	compileFailedIssue = &Issue{
		id: CompileFailedId,
		mdMsg: `
# Compilation failed!

A source matched by ` + "`compile`" + ` could not be transformed.

## Things you can try:
- Fix the syntax error reported above
- Narrow the ` + "`compile`" + ` patterns so they only match TypeScript and JSX sources`,
		extLinks: []HttpLink{"https://esbuild.github.io/content-types/"},
	}

	outputNotWritableIssue = &Issue{
		id: OutputNotWritableId,
		mdMsg: `
# Output directory is not writable!

## Things you can try:
- Check the permissions of the ` + "`output`" + ` directory
- Choose an output directory outside of the source root`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():      configNotFoundIssue,
		configInvalidIssue.Id():       configInvalidIssue,
		importMapNotFoundIssue.Id():   importMapNotFoundIssue,
		importMapInvalidIssue.Id():    importMapInvalidIssue,
		unresolvedSpecifierIssue.Id(): unresolvedSpecifierIssue,
		graphInconsistentIssue.Id():   graphInconsistentIssue,
		remoteFetchFailedIssue.Id():   remoteFetchFailedIssue,
		vendorWriteFailedIssue.Id():   vendorWriteFailedIssue,
		compileFailedIssue.Id():       compileFailedIssue,
		outputNotWritableIssue.Id():   outputNotWritableIssue,
	}
)

// Values returns every catalog guide ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id - b.id)
	})
}

// Get returns the guide for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
