package validation

import "testing"

func TestIsValidIdentifierChar(t *testing.T) {
	tests := []struct {
		name string
		ch   rune
		want bool
	}{
		// Valid characters
		{"lowercase a", 'a', true},
		{"lowercase z", 'z', true},
		{"uppercase A", 'A', true},
		{"uppercase Z", 'Z', true},
		{"digit 0", '0', true},
		{"digit 9", '9', true},
		{"hyphen", '-', true},
		{"underscore", '_', true},

		// Invalid characters
		{"space", ' ', false},
		{"dot", '.', false},
		{"slash", '/', false},
		{"backslash", '\\', false},
		{"colon", ':', false},
		{"semicolon", ';', false},
		{"asterisk", '*', false},
		{"question mark", '?', false},
		{"exclamation", '!', false},
		{"at sign", '@', false},
		{"hash", '#', false},
		{"dollar", '$', false},
		{"percent", '%', false},
		{"caret", '^', false},
		{"ampersand", '&', false},
		{"parenthesis", '(', false},
		{"bracket", '[', false},
		{"brace", '{', false},
		{"less than", '<', false},
		{"greater than", '>', false},
		{"pipe", '|', false},
		{"backtick", '`', false},
		{"tilde", '~', false},
		{"newline", '\n', false},
		{"tab", '\t', false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidIdentifierChar(tt.ch); got != tt.want {
				t.Errorf("IsValidIdentifierChar(%q) = %v, want %v", tt.ch, got, tt.want)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	long := "a"
	for len(long) <= MaxIdentifierLength {
		long += "b"
	}

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple lowercase", "openai", false},
		{"mixed case", "OpenAIKey", false},
		{"with digits", "key2", false},
		{"with hyphens", "openai-key", false},
		{"with underscores", "openai_key", false},
		{"max length", long[:MaxIdentifierLength], false},

		{"empty string", "", true},
		{"too long", long, true},
		{"starts with digit", "2key", true},
		{"starts with hyphen", "-key", true},
		{"with space", "open ai", true},
		{"with dot", "open.ai", true},
		{"with colon", "secret:key", true},
		{"path traversal", "../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier("secret name", tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
