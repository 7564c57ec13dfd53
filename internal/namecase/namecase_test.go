package namecase

import "testing"

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme, Inc.", "Acme"},
		{"acme holdings LLC", "Acme Holdings"},
		{"ACME CORP", "Acme"},
		{"Blue Sky Group", "Blue Sky"},
		{"Smith & Sons Ltd", "Smith Sons"},
		{"plain name", "Plain Name"},
		{"O'Brien Consulting Co.", "Obrien Consulting"},
		{"  padded   spaces  ", "Padded Spaces"},
		{"", ""},
		{"Inc", ""}, // nothing left once the suffix goes
		{"Numbers 42 Ltd.", "Numbers 42"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := Shorten(tc.in); got != tc.want {
				t.Errorf("Shorten(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
