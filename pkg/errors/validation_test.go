package errors

import (
	"testing"
)

func TestValidateArtifactName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid pdf", "plan_01.pdf", false},
		{"valid spaces", "site plan_02.pdf", false},
		{"valid merged", "merged.pdf", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"slash", "a/b.pdf", true},
		{"backslash", `a\b.pdf`, true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"separator", "a|||b.pdf", true},
		{"newline", "a\nb.pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifactName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBlockNames(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantErr bool
	}{
		{"single", []string{"A3_TITLE"}, false},
		{"several", []string{"A3_TITLE", "a1-frame"}, false},

		{"nil", nil, true},
		{"blank", []string{"A3", "  "}, true},
		{"control", []string{"A3\x01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlockNames(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBlockNames(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && GetCode(err) != ErrCodeInvalidConfig {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidConfig)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "out", false},
		{"nested", "out/plans", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "out/../../etc", true},
		{"backslash", `out\plans`, true},
		{"null", "out\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
