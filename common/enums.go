// Package common keeps enums shared by configuration and commands, so
// commands do not have to depend on configuration internals.
package common

//go:generate go tool go-enum --marshal --names

// Runtime profile the program was started under. Development and test
// profiles favor debuggability over speed.
// ENUM(production, development, test)
type Profile int

// Fast reports whether native single-rule insertion should be used by
// default under this profile.
func (p Profile) Fast() bool {
	return p == ProfileProduction
}

// Diagnostic reports whether problems with individual rules should be
// visible by default under this profile.
func (p Profile) Diagnostic() bool {
	return p != ProfileProduction
}
