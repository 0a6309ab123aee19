package embedding

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	maxEmbedChars    = 8000
	truncationMarker = "\n/* truncated */"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	funcRe   = regexp.MustCompile(`(?m)^\s*(?:func|function|def|fn)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classRe  = regexp.MustCompile(`(?m)^\s*(?:class|type|struct|interface)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	importRe = regexp.MustCompile(`(?m)^\s*(?:import|from|require|use)\s+["']?([A-Za-z0-9_./@-]+)`)
)

// Prepare applies the content-type-specific preprocessing a text goes
// through before any tier encodes it.
func Prepare(text string, contentType ContentType, language string) string {
	if contentType == Code {
		return prepareCode(text, language)
	}
	return prepareText(text)
}

// prepareText normalizes whitespace and truncates at the embedding window.
func prepareText(text string) string {
	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	cleaned = strings.Trim(cleaned, ".,;:!? ")
	if len(cleaned) > maxEmbedChars {
		cleaned = cleaned[:maxEmbedChars]
	}
	return cleaned
}

// prepareCode keeps code intact but prefixes the language and the key
// identifiers so the model sees the code's vocabulary before its body.
func prepareCode(text string, language string) string {
	var header strings.Builder
	if language != "" {
		fmt.Fprintf(&header, "// language: %s\n", language)
	}
	if idents := ExtractIdentifiers(text); len(idents) > 0 {
		fmt.Fprintf(&header, "// identifiers: %s\n", strings.Join(idents, ", "))
	}

	body := strings.TrimSpace(text)
	budget := maxEmbedChars - header.Len()
	if len(body) > budget {
		body = body[:budget] + truncationMarker
	}

	return header.String() + body
}

// ExtractIdentifiers pulls function, class/type, and import names out of a
// code snippet, deduplicated and sorted for stable headers.
func ExtractIdentifiers(code string) []string {
	seen := make(map[string]struct{})

	for _, re := range []*regexp.Regexp{funcRe, classRe, importRe} {
		for _, match := range re.FindAllStringSubmatch(code, -1) {
			seen[match[1]] = struct{}{}
		}
	}

	idents := make([]string, 0, len(seen))
	for ident := range seen {
		idents = append(idents, ident)
	}
	sort.Strings(idents)

	if len(idents) > 32 {
		idents = idents[:32]
	}
	return idents
}

// CodeContext carries the structural context for graph-aware code
// embeddings: what the snippet defines, what it pulls in, and who calls
// whom.
type CodeContext struct {
	Language  string
	Functions []string
	Classes   []string
	Imports   []string
	Calls     map[string][]string
}

// Header serializes the context into a compact comment block that is
// prepended to the code before encoding.
func (cc CodeContext) Header() string {
	var b strings.Builder

	if len(cc.Functions) > 0 {
		fmt.Fprintf(&b, "// functions: %s\n", strings.Join(cc.Functions, ", "))
	}
	if len(cc.Classes) > 0 {
		fmt.Fprintf(&b, "// classes: %s\n", strings.Join(cc.Classes, ", "))
	}
	if len(cc.Imports) > 0 {
		fmt.Fprintf(&b, "// imports: %s\n", strings.Join(cc.Imports, ", "))
	}

	if len(cc.Calls) > 0 {
		callers := make([]string, 0, len(cc.Calls))
		for caller := range cc.Calls {
			callers = append(callers, caller)
		}
		sort.Strings(callers)
		for _, caller := range callers {
			fmt.Fprintf(&b, "// calls: %s -> %s\n", caller, strings.Join(cc.Calls[caller], ", "))
		}
	}

	return b.String()
}
