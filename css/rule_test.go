package css_test

import (
	"testing"

	"pagesheet/css"
)

func TestIsImport(t *testing.T) {
	tests := []struct {
		name string
		rule string
		want bool
	}{
		{name: "plain import", rule: `@import url("base.css");`, want: true},
		{name: "string import", rule: `@import "base.css";`, want: true},
		{name: "upper case", rule: `@IMPORT url(base.css);`, want: true},
		{name: "leading whitespace", rule: "  \n\t@import url(base.css);", want: true},
		{name: "leading comment", rule: `/* header */ @import url(base.css);`, want: true},
		{name: "ruleset", rule: `p { color: red }`, want: false},
		{name: "import mentioned later", rule: `p::after { content: "@import" }`, want: false},
		{name: "media", rule: `@media print { p { color: red } }`, want: false},
		{name: "similar keyword", rule: `@imports url(x);`, want: false},
		{name: "empty", rule: ``, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := css.IsImport(tt.rule); got != tt.want {
				t.Errorf("IsImport(%q) = %v, want %v", tt.rule, got, tt.want)
			}
		})
	}
}

func TestImportRule(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "site-1.css", want: `@import url("site-1.css");`},
		{url: `we"ird\name.css`, want: `@import url("we\"ird\\name.css");`},
	}
	for _, tt := range tests {
		got := css.ImportRule(tt.url)
		if got != tt.want {
			t.Errorf("ImportRule(%q) = %q, want %q", tt.url, got, tt.want)
		}
		if !css.IsImport(got) {
			t.Errorf("ImportRule(%q) is not recognized as import", tt.url)
		}
	}
}
