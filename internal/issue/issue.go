// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	EnvironmentLoadFailedId
	ProbeFailedId
	ConfigLoadFailedId
	ProfileNotFoundId
	RequirementsNotMetId
	DiagnosticsServerFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation for this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

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

// Markdown returns the page source, including a "See also" list when the
// issue has links.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

// Render renders the page for a terminal with the given glamour style
// ("dark", "light", "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

const docsBase = "https://github.com/invowk/modgate/blob/main/docs/"

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No manifest found!

modgate needs a manifest that names the module and declares its requirements.

## Things you can try:
- Pass the manifest explicitly:
~~~
$ modgate check --manifest ./modgate.cue --env ./env.cue
~~~

- Create a minimal manifest:
~~~cue
module:  "My Module"
profile: "minimum"
~~~`,
		docLinks: []HttpLink{docsBase + "manifest.md"},
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse manifest!

The manifest has syntax errors or does not match the manifest schema.

## Common issues:
- Misspelled field names (fields are closed, unknown ones are rejected)
- ` + "`profile`" + ` is not one of "minimum", "modern", "failing"
- Versions that are not dotted numbers (e.g. "latest" instead of "1.2.0")
- ` + "`requires.modules`" + ` entries without an ` + "`id`" + `

## Example manifest:
~~~cue
module:  "Shop Connector"
profile: "modern"
requires: {
	runtime: "7.4.0"
	modules: [{id: "woocommerce", min_version: "8.0.0"}]
	symbols: {"WC_Order": "WooCommerce order API"}
	multi_tenant: false
}
~~~`,
		docLinks: []HttpLink{docsBase + "manifest.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	environmentLoadFailedIssue = &Issue{
		id: EnvironmentLoadFailedId,
		mdMsg: `
# Failed to load environment snapshot!

The environment describes the runtime, host, extensions, modules and symbols
the module will be activated against.

## Things you can try:
- Generate a snapshot from the live system:
~~~
$ modgate probe --format cue > env.cue
~~~

- Or let ` + "`check`" + ` probe directly:
~~~
$ modgate check --manifest modgate.cue --probe
~~~

## Example snapshot:
~~~cue
runtime: {name: "PHP", version: "8.1.2"}
host:    {name: "WordPress", version: "6.4.0"}
extensions: ["json", "mbstring"]
modules: [{id: "woocommerce", version: "8.3.1"}]
topology: "single"
~~~`,
		docLinks: []HttpLink{docsBase + "environment.md"},
	}

	probeFailedIssue = &Issue{
		id: ProbeFailedId,
		mdMsg: `
# Environment probe failed!

One of the probe scripts exited with an error or timed out.

## Things you can try:
- Show the probe scripts in effect:
~~~
$ modgate config show
~~~

- Run the failing script by hand in your shell
- Raise ` + "`probe.timeout`" + ` if the host is slow to answer
- Use a static snapshot with ` + "`--env`" + ` instead`,
		docLinks: []HttpLink{docsBase + "probe.md"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the modgate configuration file.

## Configuration file locations:
- Linux: ~/.config/modgate/config.cue
- macOS: ~/Library/Application Support/modgate/config.cue
- Windows: %APPDATA%\modgate\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ modgate config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults

## Example configuration:
~~~cue
default_profile: "minimum"
notice_format:   "text"
diagnostics: {
	port:      2222
	token_ttl: "15m"
}
~~~`,
		docLinks: []HttpLink{docsBase + "configuration.md"},
	}

	profileNotFoundIssue = &Issue{
		id: ProfileNotFoundId,
		mdMsg: `
# Unknown requirement profile!

## Things you can try:
- List the built-in profiles:
~~~
$ modgate profiles
~~~

- Leave the profile unset to use only the manifest's own requirements`,
	}

	requirementsNotMetIssue = &Issue{
		id: RequirementsNotMetId,
		mdMsg: `
# Module blocked!

The module was not activated because the environment does not satisfy its
requirements. Each failed requirement is listed above.

## Things you can try:
- Upgrade the runtime or host to the required versions
- Install the missing extensions or sibling modules
- Capture the full notice for a support request:
~~~
$ modgate check --manifest modgate.cue --env env.cue --capture --format markdown
~~~`,
		docLinks: []HttpLink{docsBase + "requirements.md"},
	}

	diagnosticsServerFailedIssue = &Issue{
		id: DiagnosticsServerFailedId,
		mdMsg: `
# Diagnostics server failed!

The SSH diagnostics endpoint could not start or stopped unexpectedly.

## Things you can try:
- Check that the configured port is free, or use port 0 to pick one
- Bind to 127.0.0.1 unless remote harnesses need access`,
		docLinks: []HttpLink{docsBase + "diagnostics.md"},
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():        manifestNotFoundIssue,
		manifestParseErrorIssue.Id():      manifestParseErrorIssue,
		environmentLoadFailedIssue.Id():   environmentLoadFailedIssue,
		probeFailedIssue.Id():             probeFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		profileNotFoundIssue.Id():         profileNotFoundIssue,
		requirementsNotMetIssue.Id():      requirementsNotMetIssue,
		diagnosticsServerFailedIssue.Id(): diagnosticsServerFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
