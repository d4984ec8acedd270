package validator

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Ana@LISFA.edu", "ana@lisfa.edu", false},
		{"  padre@example.com ", "padre@example.com", false},
		{"no-at-sign", "", true},
		{"Ana <ana@lisfa.edu>", "", true},
		{"ana@localhost", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeEmail(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	if err := Password("12345"); err == nil {
		t.Error("short password accepted")
	}
	if err := Password("ñandú1"); err != nil {
		t.Errorf("Password() error = %v", err)
	}
}
