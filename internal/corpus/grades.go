package corpus

import (
	"fmt"
	"strings"
)

// GradeCategory is the ordered authenticity category of a narration.
// Lower values are more authentic.
type GradeCategory int

const (
	GradeSahih GradeCategory = iota
	GradeHasan
	GradeDaif
	GradeUnknown
)

// String returns the stored name of the category.
func (g GradeCategory) String() string {
	switch g {
	case GradeSahih:
		return "sahih"
	case GradeHasan:
		return "hasan"
	case GradeDaif:
		return "daif"
	default:
		return "unknown"
	}
}

// Label returns the display label of the category.
func (g GradeCategory) Label() string {
	switch g {
	case GradeSahih:
		return "Sahih"
	case GradeHasan:
		return "Hasan"
	case GradeDaif:
		return "Da'if"
	default:
		return "Unknown"
	}
}

// ParseGradeCategory parses a stored category name.
func ParseGradeCategory(s string) GradeCategory {
	switch s {
	case "sahih":
		return GradeSahih
	case "hasan":
		return GradeHasan
	case "daif":
		return GradeDaif
	default:
		return GradeUnknown
	}
}

var weakMarkers = []string{"da'if", "daif", "da`if", "dhaif", "da’if", "weak", "fabricated", "mawdu", "munkar"}

// ClassifyGrade maps a free-text grade onto a category. Narrations from the
// two Sahih collections without an explicit grade are Sahih by definition.
func ClassifyGrade(collection Collection, grade string) GradeCategory {
	g := strings.ToLower(strings.TrimSpace(grade))
	if g == "" {
		if collection == CollectionBukhari || collection == CollectionMuslim {
			return GradeSahih
		}
		return GradeUnknown
	}

	for _, m := range weakMarkers {
		if strings.Contains(g, m) {
			return GradeDaif
		}
	}

	hasan := strings.Contains(g, "hasan") || strings.Contains(g, "good")
	sahih := strings.Contains(g, "sahih") || strings.Contains(g, "authentic")
	switch {
	case hasan:
		// "Hasan Sahih" ranks as Hasan.
		return GradeHasan
	case sahih:
		return GradeSahih
	default:
		return GradeUnknown
	}
}

// GradePreference selects which grade categories a narration search admits.
type GradePreference string

const (
	// GradeSahihOnly admits only the most authentic narrations.
	GradeSahihOnly GradePreference = "sahih-only"
	// GradeSahihAndHasan admits most authentic and reliable narrations.
	GradeSahihAndHasan GradePreference = "sahih-and-hasan"
	// GradeAll admits every narration, including weak and ungraded ones.
	GradeAll GradePreference = "all"
)

// DefaultGradePreference is used when a caller does not choose one.
const DefaultGradePreference = GradeSahihOnly

// ParseGradePreference parses a preference. Empty input yields the default.
// The descriptive names most-authentic-only and most-authentic-and-reliable
// are accepted as aliases.
func ParseGradePreference(s string) (GradePreference, error) {
	switch p := GradePreference(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultGradePreference, nil
	case GradeSahihOnly, GradeSahihAndHasan, GradeAll:
		return p, nil
	case "most-authentic-only":
		return GradeSahihOnly, nil
	case "most-authentic-and-reliable":
		return GradeSahihAndHasan, nil
	default:
		return "", fmt.Errorf("unknown grade preference %q (use sahih-only, sahih-and-hasan or all)", s)
	}
}

// Categories returns the categories admitted by p. GradeAll returns nil,
// meaning no restriction.
func (p GradePreference) Categories() []GradeCategory {
	switch p {
	case GradeSahihAndHasan:
		return []GradeCategory{GradeSahih, GradeHasan}
	case GradeAll:
		return nil
	default:
		return []GradeCategory{GradeSahih}
	}
}

// Admits reports whether a narration of category g passes p.
func (p GradePreference) Admits(g GradeCategory) bool {
	cats := p.Categories()
	if cats == nil {
		return true
	}
	for _, c := range cats {
		if c == g {
			return true
		}
	}
	return false
}
