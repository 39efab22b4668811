// Package expression evaluates {{vars.x}} / {{params.x}} placeholders
// against a runtime context.
package expression

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pitabwire/studio/model"
)

// placeholder matches {{ expr }}. Braces cannot be escaped.
var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Source prefixes.
const (
	prefixVars   = "vars."
	prefixParams = "params."
)

// EvalTemplate replaces every placeholder in tmpl with the string form of
// the value it names. Unknown prefixes, missing paths and nil values all
// become the empty string; text outside placeholders is kept verbatim.
func EvalTemplate(tmpl string, ctx *model.RuntimeContext) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		expr := placeholder.FindStringSubmatch(m)[1]
		v, ok := Resolve(expr, ctx)
		if !ok {
			return ""
		}
		return Stringify(v)
	})
}

// Resolve evaluates a single expression such as "vars.user.name" and
// returns the raw value. Surrounding braces are optional.
func Resolve(expr string, ctx *model.RuntimeContext) (any, bool) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "{{") && strings.HasSuffix(expr, "}}") {
		expr = strings.TrimSpace(expr[2 : len(expr)-2])
	}

	var (
		source map[string]any
		path   string
	)
	switch {
	case strings.HasPrefix(expr, prefixVars):
		if ctx != nil {
			source = ctx.Vars
		}
		path = expr[len(prefixVars):]
	case strings.HasPrefix(expr, prefixParams):
		if ctx != nil {
			source = ctx.Params
		}
		path = expr[len(prefixParams):]
	default:
		return nil, false
	}
	if source == nil {
		source = map[string]any{}
	}

	v := navigatePath(source, path)
	if v == nil {
		return nil, false
	}
	return v, true
}

// ResolveValue evaluates tmpl and keeps the value's type when tmpl consists
// of exactly one placeholder. Any other template is evaluated as a string.
func ResolveValue(tmpl string, ctx *model.RuntimeContext) any {
	trimmed := strings.TrimSpace(tmpl)
	loc := placeholder.FindStringIndex(trimmed)
	if loc != nil && loc[0] == 0 && loc[1] == len(trimmed) {
		v, ok := Resolve(trimmed, ctx)
		if !ok {
			return ""
		}
		return v
	}
	return EvalTemplate(tmpl, ctx)
}

// Stringify renders a resolved value the way it is substituted into text.
// Maps and slices are encoded as JSON.
func Stringify(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return model.FormatValue(v)
}

// navigatePath navigates a dot-separated path through nested maps. Numeric
// segments index into slices.
func navigatePath(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		switch c := current.(type) {
		case map[string]any:
			current = c[part]
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(c) {
				return nil
			}
			current = c[i]
		default:
			return nil
		}
	}
	return current
}
