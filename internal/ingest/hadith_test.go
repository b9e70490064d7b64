package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

const bukhariExport = `{
  "collection": "bukhari",
  "collection_name": "Sahih al-Bukhari",
  "total_hadiths": 3,
  "export_date": "2024-01-01",
  "hadiths": [
    {
      "collection": "bukhari",
      "collection_name": "Sahih al-Bukhari",
      "hadith_number": 1,
      "reference": "Sahih al-Bukhari 1",
      "english_text": "Actions are judged by intentions.",
      "arabic_text": "إنما الأعمال بالنيات",
      "book_number": 1,
      "book_name": "Revelation",
      "chapter_number": 1,
      "chapter_name": "How the Divine Revelation started",
      "grade": "",
      "narrator_chain": "Narrated 'Umar bin Al-Khattab",
      "source_url": "https://sunnah.com/bukhari:1"
    },
    {
      "hadith_number": 2,
      "english_text": "  ",
      "grade": "Sahih"
    },
    {
      "hadith_number": 3,
      "reference": "Sahih al-Bukhari 3",
      "english_text": "The commencement of the divine inspiration...",
      "book_number": null,
      "grade": "Da'if"
    }
  ]
}`

func TestParseHadithExport(t *testing.T) {
	// When: parsing an export with one textless record
	data, err := ParseHadithExport(strings.NewReader(bukhariExport), "bukhari-full.json")

	// Then: the textless record is skipped with a warning
	require.NoError(t, err)
	require.Len(t, data.Narrations, 2)
	require.Len(t, data.Warnings, 1)
	assert.Equal(t, "bukhari-full.json: bukhari 2 has no English text", data.Warnings[0].String())

	first := data.Narrations[0]
	assert.Equal(t, corpus.CollectionBukhari, first.Collection)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "Sahih al-Bukhari 1", first.Reference)
	assert.Equal(t, "إنما الأعمال بالنيات", first.TextNative)
	assert.Equal(t, "Revelation", first.BookName)
	assert.Equal(t, "https://sunnah.com/bukhari:1", first.SourceURL)
	assert.Equal(t, corpus.GradeSahih, first.GradeCategory, "Bukhari with an empty grade is Sahih")

	// Then: the collection falls back to the file's and grades are classified
	third := data.Narrations[1]
	assert.Equal(t, corpus.CollectionBukhari, third.Collection)
	assert.Equal(t, 0, third.BookNumber)
	assert.Equal(t, corpus.GradeDaif, third.GradeCategory)
}

func TestParseHadithExport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"malformed json", `{"hadiths": [`, cerrors.ErrCodeMalformedData},
		{"unknown collection", `{"collection": "tirmidhi", "hadiths": [{"hadith_number": 1, "english_text": "x"}]}`, cerrors.ErrCodeUnknownCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHadithExport(strings.NewReader(tt.input), "x.json")

			require.Error(t, err)
			assert.Equal(t, tt.code, cerrors.GetCode(err))
		})
	}
}

func TestHadithFiles(t *testing.T) {
	// Given: two exports and an unrelated file
	dir := t.TempDir()
	for _, name := range []string{"muslim-full.json", "bukhari-full.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600))
	}

	t.Run("all exports sorted", func(t *testing.T) {
		paths, err := HadithFiles(dir, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "bukhari-full.json"),
			filepath.Join(dir, "muslim-full.json"),
		}, paths)
	})

	t.Run("selected collection", func(t *testing.T) {
		paths, err := HadithFiles(dir, []corpus.Collection{corpus.CollectionMuslim})

		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "muslim-full.json")}, paths)
	})

	t.Run("selected collection missing", func(t *testing.T) {
		_, err := HadithFiles(dir, []corpus.Collection{corpus.CollectionNawawi40})

		assert.Equal(t, cerrors.ErrCodeFileNotFound, cerrors.GetCode(err))
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := HadithFiles(t.TempDir(), nil)

		assert.Equal(t, cerrors.ErrCodeFileNotFound, cerrors.GetCode(err))
	})
}

func TestReadHadith_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	bukhari := filepath.Join(dir, "bukhari-full.json")
	nawawi := filepath.Join(dir, "nawawi40-full.json")
	require.NoError(t, os.WriteFile(bukhari, []byte(bukhariExport), 0o600))
	require.NoError(t, os.WriteFile(nawawi, []byte(`{"collection":"nawawi40","hadiths":[{"hadith_number":1,"english_text":"Actions are by intentions.","grade":"Sahih"}]}`), 0o600))

	data, err := ReadHadith([]string{bukhari, nawawi})

	require.NoError(t, err)
	assert.Len(t, data.Narrations, 3)
	assert.Len(t, data.Warnings, 1)
	assert.Equal(t, corpus.CollectionNawawi40, data.Narrations[2].Collection)
}
