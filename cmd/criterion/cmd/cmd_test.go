package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/search/searchtest"
)

// testEnv is an isolated configuration: user config, data directory and
// project directory all live under t.TempDir, and the static embedder is
// selected so no network is needed.
type testEnv struct {
	dir     string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{dir: dir, dataDir: filepath.Join(dir, "data")}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("CRITERION_DATA_DIR", env.dataDir)
	t.Setenv("CRITERION_EMBEDDER", "static")
	t.Setenv("CRITERION_EMBEDDER_DIMENSIONS", fmt.Sprint(searchtest.Dimensions))
	t.Setenv("CRITERION_VECTOR_BACKEND", "exact")
	t.Setenv("CRITERION_KEYWORD_BACKEND", "sqlite")
	t.Setenv("NO_COLOR", "1")
	return env
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{"--config-dir", e.dir}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeQuran writes the fixture verses as English and Arabic verse files.
func (e *testEnv) writeQuran(t *testing.T) (english, arabic string) {
	t.Helper()
	var en, ar strings.Builder
	en.WriteString("# English fixture\n\n")
	for _, v := range searchtest.Verses() {
		fmt.Fprintf(&en, "%d|%d|%s\n", v.Chapter, v.Number, v.TextDefault)
		fmt.Fprintf(&ar, "%d|%d|%s\n", v.Chapter, v.Number, v.TextNative)
	}
	english = filepath.Join(e.dir, "en.txt")
	arabic = filepath.Join(e.dir, "ar.txt")
	require.NoError(t, os.WriteFile(english, []byte(en.String()), 0o644))
	require.NoError(t, os.WriteFile(arabic, []byte(ar.String()), 0o644))
	return english, arabic
}

// writeHadith writes the fixture narrations as collection exports and
// returns their directory.
func (e *testEnv) writeHadith(t *testing.T) string {
	t.Helper()
	type record struct {
		Collection    string `json:"collection"`
		HadithNumber  int    `json:"hadith_number"`
		Reference     string `json:"reference"`
		EnglishText   string `json:"english_text"`
		Grade         string `json:"grade"`
		NarratorChain string `json:"narrator_chain"`
	}
	byCollection := map[string][]record{}
	for _, n := range searchtest.Narrations() {
		c := string(n.Collection)
		byCollection[c] = append(byCollection[c], record{
			Collection:    c,
			HadithNumber:  n.Number,
			Reference:     n.Reference,
			EnglishText:   n.TextDefault,
			Grade:         n.Grade,
			NarratorChain: n.NarratorChain,
		})
	}

	dir := filepath.Join(e.dir, "hadith")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for c, recs := range byCollection {
		data, err := json.Marshal(map[string]any{"collection": c, "hadiths": recs})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, c+"-full.json"), data, 0o644))
	}
	return dir
}

// ingestAll loads both fixture corpora.
func (e *testEnv) ingestAll(t *testing.T) {
	t.Helper()
	english, arabic := e.writeQuran(t)
	_, _, err := e.run(t, "ingest", "quran", "--english", english, "--arabic", arabic, "--plain")
	require.NoError(t, err)
	_, _, err = e.run(t, "ingest", "hadith", "--dir", e.writeHadith(t), "--plain")
	require.NoError(t, err)
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}
