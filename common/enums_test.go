package common

import (
	"errors"
	"testing"
)

func TestProfile_Defaults(t *testing.T) {
	tests := []struct {
		profile    Profile
		fast       bool
		diagnostic bool
	}{
		{ProfileProduction, true, false},
		{ProfileDevelopment, false, true},
		{ProfileTest, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.profile.String(), func(t *testing.T) {
			if got := tt.profile.Fast(); got != tt.fast {
				t.Errorf("Fast() = %v, want %v", got, tt.fast)
			}
			if got := tt.profile.Diagnostic(); got != tt.diagnostic {
				t.Errorf("Diagnostic() = %v, want %v", got, tt.diagnostic)
			}
		})
	}
}

func TestProfile_Text(t *testing.T) {
	for _, name := range ProfileNames() {
		var p Profile
		if err := p.UnmarshalText([]byte(name)); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", name, err)
		}
		data, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		if string(data) != name {
			t.Errorf("MarshalText() = %q, want %q", data, name)
		}
	}

	if _, err := ParseProfile("staging"); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("ParseProfile(staging) error = %v, want %v", err, ErrInvalidProfile)
	}
}
