// internal/slug/slug.go

// Package slug derives URL-safe identifiers from human titles and
// resolves collisions against existing catalog entries.
//
// Two collision policies exist and callers use them differently: the
// single-item approval path suffixes until free, while batch imports
// reject a colliding slug so the operator reviews it explicitly
// instead of discovering surprising slugs across dozens of URLs.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the upper bound on generated slugs.
const MaxLength = 100

// ErrConflict is returned by Check when the computed slug already
// belongs to an existing record.
var ErrConflict = errors.New("slug already in use")

// ExistsFunc reports whether a slug is already taken. Implementations
// query the catalog store for the relevant entity type.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

var (
	stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	invalidChars    = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
)

// Make converts a title to a slug. It is pure and deterministic:
// lowercase, Unicode-decompose and strip combining marks, map the
// Vietnamese letter đ to d, drop everything outside [a-z0-9 -],
// collapse whitespace and hyphen runs, trim, truncate to MaxLength.
func Make(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	// đ is a distinct letter, not a combining form, so NFD alone
	// does not reduce it.
	s = strings.NewReplacer("đ", "d", "Đ", "d").Replace(s)

	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}

	s = invalidChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		s = strings.Trim(s[:MaxLength], "-")
	}

	return s
}

// Unique returns a free slug for the title, appending -1, -2, ... on
// collision. Used by the job approval path; always succeeds unless the
// existence check itself fails.
func Unique(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Make(title)
	if base == "" {
		return "", fmt.Errorf("title %q produced an empty slug", title)
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug lookup for %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// Check returns the slug for the title, or ErrConflict (alongside the
// computed slug) when it is already taken. Used by batch imports; the
// slug is never mutated in this mode.
func Check(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	s := Make(title)
	if s == "" {
		return "", fmt.Errorf("title %q produced an empty slug", title)
	}

	taken, err := exists(ctx, s)
	if err != nil {
		return "", fmt.Errorf("slug lookup for %q: %w", s, err)
	}
	if taken {
		return s, ErrConflict
	}
	return s, nil
}
