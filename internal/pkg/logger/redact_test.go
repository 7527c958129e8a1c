package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"normal email", "digital-business@hlag.com", "di***@hlag.com"},
		{"short local part", "ab@example.com", "***@example.com"},
		{"no at sign", "notanemail", "***@***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactEmail(tt.email); got != tt.want {
				t.Errorf("RedactEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestRedactFreeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"long address", "123 Harbor Way, Savannah, GA", "123 ***"},
		{"short value", "Acme", "***"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactFreeText(tt.in); got != tt.want {
				t.Errorf("RedactFreeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
