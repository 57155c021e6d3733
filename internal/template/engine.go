// Package template renders the {{tag}} mini-language used for note bodies,
// note paths, download paths, timestamps and transcripts.
//
// A tag is either {{name}} or {{name: arg1,arg2}}. Names are case-insensitive.
// Unknown tags are left in the output verbatim and reported as Diagnostics,
// optionally with the closest registered name as a suggestion.
package template

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/glabrego/podnotes/internal/logging"
)

// suggestionThreshold is the minimum similarity ratio for a suggestion.
const suggestionThreshold = 0.5

var reTag = regexp.MustCompile(`\{\{(.*?)\}\}`)

// TagFunc computes a tag value from the comma-separated arguments given after
// the colon. It receives no arguments when the tag has no colon.
type TagFunc func(args ...string) string

// Tag is either a literal value or a function of the tag arguments.
type Tag struct {
	literal string
	fn      TagFunc
}

func Literal(value string) Tag { return Tag{literal: value} }

func Func(fn TagFunc) Tag { return Tag{fn: fn} }

func (t Tag) resolve(args []string) string {
	if t.fn == nil {
		return t.literal
	}
	return t.fn(args...)
}

// Tags maps lowercase tag names to their values.
type Tags map[string]Tag

// Diagnostic reports a tag that did not resolve.
type Diagnostic struct {
	Tag        string
	Suggestion string
}

func (d Diagnostic) String() string {
	if d.Suggestion == "" {
		return fmt.Sprintf("unknown template tag %q", d.Tag)
	}
	return fmt.Sprintf("unknown template tag %q, did you mean %q?", d.Tag, d.Suggestion)
}

type Option func(*renderer)

func WithLogger(logger *slog.Logger) Option {
	return func(r *renderer) { r.logger = logging.NewComponentLogger(logger, "template") }
}

type renderer struct {
	logger *slog.Logger
}

// Render substitutes every tag of tmpl found in tags, in source order.
func Render(tmpl string, tags Tags, opts ...Option) (string, []Diagnostic) {
	r := renderer{logger: logging.NewComponentLogger(nil, "template")}
	for _, opt := range opts {
		opt(&r)
	}

	var diags []Diagnostic
	out := reTag.ReplaceAllStringFunc(tmpl, func(match string) string {
		inner := match[2 : len(match)-2]
		name, argText, hasArgs := strings.Cut(inner, ":")
		name = strings.ToLower(strings.TrimSpace(name))

		tag, ok := tags[name]
		if !ok {
			d := Diagnostic{Tag: name, Suggestion: suggest(name, tags)}
			diags = append(diags, d)
			r.logger.Warn("unresolved template tag",
				logging.Event("template_unknown_tag"),
				logging.String("tag", d.Tag),
				logging.String("suggestion", d.Suggestion))
			return match
		}
		if !hasArgs {
			return tag.resolve(nil)
		}
		argText = strings.TrimPrefix(argText, " ")
		return tag.resolve(strings.Split(argText, ","))
	})
	return out, diags
}

// suggest returns the registered name most similar to name, or "" when none
// reaches suggestionThreshold.
func suggest(name string, tags Tags) string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)

	best, bestRatio := "", 0.0
	for _, candidate := range names {
		ratio := similarity(name, candidate)
		if ratio > bestRatio {
			best, bestRatio = candidate, ratio
		}
	}
	if bestRatio < suggestionThreshold {
		return ""
	}
	return best
}

func similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// joinedArgs returns args joined back on commas, or fallback when empty. Format
// strings may legitimately contain commas.
func joinedArgs(args []string, fallback string) string {
	joined := strings.Join(args, ",")
	if strings.TrimSpace(joined) == "" {
		return fallback
	}
	return joined
}
