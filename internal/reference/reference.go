// Package reference parses and validates verse references of the form
// "chapter:verse" and "chapter:start-end".
package reference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

var (
	rangePattern  = regexp.MustCompile(`^(\d+):(\d+)-(\d+)$`)
	singlePattern = regexp.MustCompile(`^(\d+):(\d+)$`)
)

// Reference is a parsed verse reference. For a single verse Start == End.
type Reference struct {
	Chapter int
	Start   int
	End     int
	IsRange bool
	Input   string
}

// Parse parses ref without checking it against the chapter table.
func Parse(ref string) (Reference, error) {
	trimmed := strings.TrimSpace(ref)

	if m := rangePattern.FindStringSubmatch(trimmed); m != nil {
		chapter, start, end, err := atoi3(m[1], m[2], m[3])
		if err != nil {
			return Reference{}, invalidSyntax(ref)
		}
		return Reference{Chapter: chapter, Start: start, End: end, IsRange: true, Input: ref}, nil
	}

	if m := singlePattern.FindStringSubmatch(trimmed); m != nil {
		chapter, verse, _, err := atoi3(m[1], m[2], "0")
		if err != nil {
			return Reference{}, invalidSyntax(ref)
		}
		return Reference{Chapter: chapter, Start: verse, End: verse, Input: ref}, nil
	}

	return Reference{}, invalidSyntax(ref)
}

// ParseAndValidate parses ref and validates it.
func ParseAndValidate(ref string) (Reference, error) {
	r, err := Parse(ref)
	if err != nil {
		return Reference{}, err
	}
	if err := r.Validate(); err != nil {
		return Reference{}, err
	}
	return r, nil
}

// Validate checks the reference against the chapter table.
func (r Reference) Validate() error {
	ch, ok := corpus.LookupChapter(r.Chapter)
	if !ok {
		return cerrors.Newf(cerrors.ErrCodeChapterOutOfRange,
			"Invalid Surah number: %d. Must be between 1 and %d.", r.Chapter, corpus.ChapterCount).
			WithDetail("reference", r.Input)
	}

	for _, v := range []int{r.Start, r.End} {
		if v < 1 || v > ch.Verses {
			return cerrors.Newf(cerrors.ErrCodeVerseOutOfRange,
				"Invalid Ayah number: %d. Surah %s has %d verses.", v, ch.Name, ch.Verses).
				WithDetail("reference", r.Input)
		}
	}

	if r.IsRange && r.Start > r.End {
		return cerrors.Newf(cerrors.ErrCodeInvalidRange,
			"Invalid range: %d-%d. Start ayah must be less than or equal to end ayah.", r.Start, r.End).
			WithDetail("reference", r.Input)
	}

	return nil
}

// Len returns the number of verses the reference covers.
func (r Reference) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// String renders the canonical numeric form, e.g. "2:255" or "2:10-20".
func (r Reference) String() string {
	if r.IsRange {
		return fmt.Sprintf("%d:%d-%d", r.Chapter, r.Start, r.End)
	}
	return fmt.Sprintf("%d:%d", r.Chapter, r.Start)
}

// Display renders the reference with the chapter name, e.g.
// "Al-Baqarah 2:255".
func (r Reference) Display() string {
	name := ""
	if ch, ok := corpus.LookupChapter(r.Chapter); ok {
		name = ch.Name
	}
	if name == "" {
		return r.String()
	}
	return name + " " + r.String()
}

func invalidSyntax(ref string) error {
	return cerrors.Newf(cerrors.ErrCodeInvalidReference,
		`Invalid reference format: %q. Expected format: "Surah:Ayah" (e.g., "2:255") or "Surah:Start-End" (e.g., "2:10-20")`, ref).
		WithDetail("reference", ref)
}

func atoi3(a, b, c string) (int, int, int, error) {
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, 0, err
	}
	z, err := strconv.Atoi(c)
	if err != nil {
		return 0, 0, 0, err
	}
	return x, y, z, nil
}
