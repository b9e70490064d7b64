package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/store"
)

// Warning is a skipped input record.
type Warning struct {
	Source  string
	Line    int // 0 when not line-oriented
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", w.Source, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Source, w.Message)
}

// QuranData is the parsed Quran ready for ingestion.
type QuranData struct {
	Verses   []*store.Verse
	Warnings []Warning
}

type verseKey struct{ chapter, verse int }

// ParseVerseLines reads "chapter|verse|text" lines. Blank lines and lines
// starting with # are ignored. Malformed lines and verses outside their
// chapter are reported as warnings.
func ParseVerseLines(r io.Reader, source string) (map[verseKey]string, []Warning, error) {
	texts := make(map[verseKey]string)
	var warnings []Warning

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		warn := func(format string, args ...any) {
			warnings = append(warnings, Warning{Source: source, Line: lineNo, Message: fmt.Sprintf(format, args...)})
		}

		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			warn("malformed line, expected chapter|verse|text")
			continue
		}
		chapter, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		verse, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			warn("invalid chapter or verse number")
			continue
		}
		if !corpus.IsValidVerse(chapter, verse) {
			warn("verse %d:%d is outside its chapter", chapter, verse)
			continue
		}
		text := strings.TrimSpace(parts[2])
		if text == "" {
			warn("verse %d:%d has no text", chapter, verse)
			continue
		}
		texts[verseKey{chapter, verse}] = text
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return texts, warnings, nil
}

// ReadQuran parses the English and Arabic verse files and joins them on
// (chapter, verse). English text is required; a missing Arabic line leaves
// the native text empty. Verses come back in canonical order.
func ReadQuran(englishPath, arabicPath string) (*QuranData, error) {
	english, warnings, err := parseVerseFile(englishPath)
	if err != nil {
		return nil, err
	}
	arabic, arabicWarnings, err := parseVerseFile(arabicPath)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, arabicWarnings...)

	data := &QuranData{Warnings: warnings}
	for _, ch := range corpus.Chapters() {
		for v := 1; v <= ch.Verses; v++ {
			key := verseKey{ch.Number, v}
			text, ok := english[key]
			if !ok {
				continue
			}
			data.Verses = append(data.Verses, &store.Verse{
				Chapter:           ch.Number,
				Number:            v,
				TextDefault:       text,
				TextNative:        arabic[key],
				ChapterName:       ch.Name,
				ChapterNameNative: ch.NameNative,
			})
		}
	}
	return data, nil
}

func parseVerseFile(path string) (map[verseKey]string, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, cerrors.New(cerrors.ErrCodeFileNotFound, "cannot open verse file "+path, err)
	}
	defer f.Close()
	return ParseVerseLines(f, filepath.Base(path))
}
