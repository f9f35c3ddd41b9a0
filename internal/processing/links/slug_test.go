package links

import (
	"errors"
	"strings"
	"testing"
)

func TestCryptoSluggerGenerate(t *testing.T) {
	s := NewCryptoSlugger()

	t.Run("correct length", func(t *testing.T) {
		slug, err := s.Generate(8)
		if err != nil {
			t.Fatal(err)
		}
		if len(slug) != 8 {
			t.Errorf("got length %d, want 8", len(slug))
		}
	})

	t.Run("base62 alphabet only", func(t *testing.T) {
		slug, err := s.Generate(100)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range slug {
			if !strings.ContainsRune(base62Alphabet, c) {
				t.Errorf("slug contains non-base62 char: %q", c)
			}
		}
	})

	t.Run("zero length uses fallback", func(t *testing.T) {
		slug, err := s.Generate(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(slug) != 7 {
			t.Errorf("got length %d, want 7 (fallback)", len(slug))
		}
	})

	t.Run("negative length uses fallback", func(t *testing.T) {
		slug, err := s.Generate(-5)
		if err != nil {
			t.Fatal(err)
		}
		if len(slug) != 7 {
			t.Errorf("got length %d, want 7 (fallback)", len(slug))
		}
	})

	t.Run("uniqueness over 100 calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 100)
		for i := 0; i < 100; i++ {
			slug, err := s.Generate(10)
			if err != nil {
				t.Fatal(err)
			}
			if _, exists := seen[slug]; exists {
				t.Fatalf("duplicate slug on iteration %d: %q", i, slug)
			}
			seen[slug] = struct{}{}
		}
	})
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		wantErr bool
	}{
		{"simple", "promo", false},
		{"mixed case", "MyAlias", false},
		{"digits", "2024sale", false},
		{"hyphen and underscore", "black-friday_24", false},
		{"single char", "x", false},
		{"max length", strings.Repeat("a", 32), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 33), true},
		{"space", "my alias", true},
		{"slash", "a/b", true},
		{"unicode", "café", true},
		{"dot", "v1.2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlias(tt.alias)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAlias) {
					t.Errorf("ValidateAlias(%q) = %v, want ErrInvalidAlias", tt.alias, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateAlias(%q) = %v, want nil", tt.alias, err)
			}
		})
	}
}
