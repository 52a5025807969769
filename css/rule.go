// Package css knows just enough about CSS syntax to handle rules as opaque
// units: it splits stylesheets into top-level rules and recognizes imports.
package css

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// IsImport reports whether rule text starts with @import directive. Leading
// whitespace and comments are ignored, keyword is case-insensitive.
func IsImport(rule string) bool {
	// Fast path: no at-keyword at all.
	if !strings.Contains(rule, "@") {
		return false
	}
	l := css.NewLexer(parse.NewInputString(rule))
	for {
		tt, data := l.Next()
		switch tt {
		case css.WhitespaceToken, css.CommentToken:
			continue
		case css.AtKeywordToken:
			return strings.EqualFold(string(data), "@import")
		default:
			return false
		}
	}
}

// ImportRule produces @import rule for url.
func ImportRule(url string) string {
	return `@import url("` + escapeDoubleQuoted(url) + `");`
}

// escapeDoubleQuoted escapes a string for use inside CSS double quotes.
func escapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
