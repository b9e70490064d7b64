package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/store"
)

// HadithFileSuffix names collection export files, e.g. bukhari-full.json.
const HadithFileSuffix = "-full.json"

// hadithExport is the JSON layout of a collection export.
type hadithExport struct {
	Collection     string         `json:"collection"`
	CollectionName string         `json:"collection_name"`
	TotalHadiths   int            `json:"total_hadiths"`
	ExportDate     string         `json:"export_date"`
	Hadiths        []hadithRecord `json:"hadiths"`
}

type hadithRecord struct {
	Collection     string `json:"collection"`
	CollectionName string `json:"collection_name"`
	HadithNumber   int    `json:"hadith_number"`
	Reference      string `json:"reference"`
	EnglishText    string `json:"english_text"`
	ArabicText     string `json:"arabic_text"`
	BookNumber     int    `json:"book_number"`
	BookName       string `json:"book_name"`
	ChapterNumber  int    `json:"chapter_number"`
	ChapterName    string `json:"chapter_name"`
	Grade          string `json:"grade"`
	NarratorChain  string `json:"narrator_chain"`
	SourceURL      string `json:"source_url"`
}

// HadithData is a parsed set of narrations ready for ingestion.
type HadithData struct {
	Narrations []*store.Narration
	Warnings   []Warning
}

// ParseHadithExport decodes one collection export. Records without English
// text are skipped with a warning. A record naming an unknown collection
// fails the whole file.
func ParseHadithExport(r io.Reader, source string) (*HadithData, error) {
	var export hadithExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, cerrors.New(cerrors.ErrCodeMalformedData, "cannot decode hadith export "+source, err)
	}

	data := &HadithData{}
	for i, rec := range export.Hadiths {
		name := rec.Collection
		if name == "" {
			name = export.Collection
		}
		collection, err := corpus.ParseCollection(name)
		if err != nil {
			return nil, cerrors.New(cerrors.ErrCodeUnknownCollection,
				fmt.Sprintf("%s: record %d names unknown collection %q", source, i+1, name), err)
		}

		if strings.TrimSpace(rec.EnglishText) == "" {
			data.Warnings = append(data.Warnings, Warning{
				Source:  source,
				Message: fmt.Sprintf("%s %d has no English text", collection, rec.HadithNumber),
			})
			continue
		}

		data.Narrations = append(data.Narrations, &store.Narration{
			Collection:    collection,
			Number:        rec.HadithNumber,
			Reference:     strings.TrimSpace(rec.Reference),
			TextDefault:   strings.TrimSpace(rec.EnglishText),
			TextNative:    strings.TrimSpace(rec.ArabicText),
			Grade:         strings.TrimSpace(rec.Grade),
			GradeCategory: corpus.ClassifyGrade(collection, rec.Grade),
			BookNumber:    rec.BookNumber,
			BookName:      rec.BookName,
			ChapterNumber: rec.ChapterNumber,
			ChapterName:   rec.ChapterName,
			NarratorChain: rec.NarratorChain,
			SourceURL:     rec.SourceURL,
		})
	}
	return data, nil
}

// HadithFiles lists the collection exports in dir, sorted by name. When
// collections is non-empty only their files are returned, and a missing
// file is an error.
func HadithFiles(dir string, collections []corpus.Collection) ([]string, error) {
	if len(collections) > 0 {
		paths := make([]string, 0, len(collections))
		for _, c := range collections {
			path := filepath.Join(dir, string(c)+HadithFileSuffix)
			if _, err := os.Stat(path); err != nil {
				return nil, cerrors.New(cerrors.ErrCodeFileNotFound, "hadith export not found: "+path, err)
			}
			paths = append(paths, path)
		}
		return paths, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*"+HadithFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeFileNotFound, "no *"+HadithFileSuffix+" files in "+dir, nil)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadHadith parses every export in paths into one data set.
func ReadHadith(paths []string) (*HadithData, error) {
	all := &HadithData{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, cerrors.New(cerrors.ErrCodeFileNotFound, "cannot open hadith export "+path, err)
		}
		data, err := ParseHadithExport(f, filepath.Base(path))
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		all.Narrations = append(all.Narrations, data.Narrations...)
		all.Warnings = append(all.Warnings, data.Warnings...)
	}
	return all, nil
}
