package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// StatusInfo describes the state of the local corpus.
type StatusInfo struct {
	Database            string         `json:"database"`
	DatabaseSize        int64          `json:"database_size"`
	Verses              int            `json:"verses"`
	VerseEmbeddings     int            `json:"verse_embeddings"`
	Narrations          int            `json:"narrations"`
	NarrationEmbeddings int            `json:"narration_embeddings"`
	ByCollection        map[string]int `json:"by_collection"`
	EmbeddingModel      string         `json:"embedding_model,omitempty"`
	EmbeddingDimensions int            `json:"embedding_dimensions,omitempty"`
	VectorBackend       string         `json:"vector_backend"`
	KeywordBackend      string         `json:"keyword_backend"`
	EmbedderStatus      string         `json:"embedder_status"` // "ready", "offline" or "error"
}

// StatusRenderer displays corpus status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus Status"))
	_, _ = fmt.Fprintf(r.out, "  Database:   %s (%s)\n", info.Database, FormatBytes(info.DatabaseSize))
	_, _ = fmt.Fprintf(r.out, "  Verses:     %d (%d embedded)\n", info.Verses, info.VerseEmbeddings)
	_, _ = fmt.Fprintf(r.out, "  Narrations: %d (%d embedded)\n", info.Narrations, info.NarrationEmbeddings)

	if len(info.ByCollection) > 0 {
		names := make([]string, 0, len(info.ByCollection))
		for name := range info.ByCollection {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(r.out, "    %-16s %d\n", name, info.ByCollection[name])
		}
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Indexes:")
	_, _ = fmt.Fprintf(r.out, "    Vector:  %s\n", info.VectorBackend)
	_, _ = fmt.Fprintf(r.out, "    Keyword: %s\n", info.KeywordBackend)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	if info.EmbeddingModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:  %s (%d dims)\n", info.EmbeddingModel, info.EmbeddingDimensions)
	}
	_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.EmbedderStatus))
	return nil
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// FormatBytes formats a byte count for humans.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
