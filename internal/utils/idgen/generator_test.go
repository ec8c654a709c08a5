package idgen

import (
	"strings"
	"testing"
)

func TestGenerateSecureID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		length     int
		wantPrefix string
	}{
		{"conversation ID", "conv", 24, "conv_"},
		{"message ID", "msg", 24, "msg_"},
		{"short ID", "test", 8, "test_"},
		{"long ID", "test", 32, "test_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSecureID(tt.prefix, tt.length)
			if err != nil {
				t.Fatalf("GenerateSecureID() error = %v", err)
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateSecureID() = %v, want prefix %v", got, tt.wantPrefix)
			}
			expectedLen := len(tt.prefix) + 1 + tt.length
			if len(got) != expectedLen {
				t.Errorf("GenerateSecureID() length = %v, want %v", len(got), expectedLen)
			}
			// Check character set (only 0-9a-z after prefix_)
			suffix := got[len(tt.prefix)+1:]
			for _, char := range suffix {
				if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
					t.Errorf("GenerateSecureID() contains invalid character: %c", char)
				}
			}
		})
	}
}

func TestGenerateSecureID_Uniqueness(t *testing.T) {
	const iterations = 10000
	seen := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		id, err := GenerateSecureID("test", 16)
		if err != nil {
			t.Fatalf("GenerateSecureID() error = %v", err)
		}
		if seen[id] {
			t.Errorf("GenerateSecureID() generated duplicate ID: %v", id)
		}
		seen[id] = true
	}
}

func BenchmarkGenerateSecureID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, err := GenerateSecureID("conv", 24)
		if err != nil {
			b.Fatal(err)
		}
	}
}
