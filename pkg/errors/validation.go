package errors

import (
	"strings"
	"unicode"
)

// ValidateArtifactName validates the name of an output artifact or a
// fingerprint record key. Names are plain file names inside the output
// directory; the record store uses "|||" as its field separator, so the
// separator is rejected as well.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 255 characters
//   - No control characters
//   - No path separators or traversal sequences
//   - No record separator sequence
func ValidateArtifactName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "artifact name cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeInvalidName, "artifact name too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "artifact name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, `/\`) {
		return New(ErrCodeInvalidName, "artifact name cannot contain path separators")
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidName, "artifact name cannot be %q", name)
	}

	if strings.Contains(name, "|||") {
		return New(ErrCodeInvalidName, "artifact name cannot contain %q", "|||")
	}

	return nil
}

// ValidateBlockNames validates a list of title-block names.
// At least one non-blank name is required.
func ValidateBlockNames(names []string) error {
	if len(names) == 0 {
		return New(ErrCodeInvalidConfig, "no title block names configured")
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return New(ErrCodeInvalidConfig, "title block names cannot be blank")
		}
		for _, r := range n {
			if unicode.IsControl(r) {
				return New(ErrCodeInvalidConfig, "title block name %q contains control characters", n)
			}
		}
	}
	return nil
}

// ValidatePath validates a relative path received from an untrusted caller,
// such as a status server request.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
