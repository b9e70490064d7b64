package format

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/search"
)

// VersesMarkdown renders a verse outcome as markdown.
func VersesMarkdown(out *search.VerseOutcome) string {
	if out == nil {
		return search.MsgNoVerses
	}
	if !out.Found {
		return out.Message
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Verses for %q\n\n", out.Query)
	writeCount(&sb, len(out.Results), "verse")

	for _, v := range Verses(out.Results) {
		fmt.Fprintf(&sb, "### %d. %s (%s)\n\n", v.Rank, v.Reference, v.Relevance)
		for _, c := range v.ContextBefore {
			fmt.Fprintf(&sb, "> [%d] %s\n", c.Verse, c.English)
		}
		if v.Arabic != "" {
			fmt.Fprintf(&sb, "%s\n\n", v.Arabic)
		}
		fmt.Fprintf(&sb, "**%s**\n", v.English)
		for _, c := range v.ContextAfter {
			fmt.Fprintf(&sb, "> [%d] %s\n", c.Verse, c.English)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// NarrationsMarkdown renders a narration outcome as markdown.
func NarrationsMarkdown(out *search.NarrationOutcome) string {
	if out == nil {
		return search.MsgNoNarrations
	}
	if !out.Found {
		return out.Message
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Hadiths for %q\n\n", out.Query)
	fmt.Fprintf(&sb, "Collections: %s | Grade filter: %s\n\n",
		strings.Join(corpus.DisplayNames(out.Collections), ", "), out.Grade)
	writeCount(&sb, len(out.Results), "hadith")

	for _, n := range Narrations(out.Results) {
		fmt.Fprintf(&sb, "### %d. %s (%s, %s)\n\n", n.Rank, n.Reference, n.Relevance, n.MatchType)
		fmt.Fprintf(&sb, "- Grade: %s\n- Narrator: %s\n- Book: %s\n- Chapter: %s\n",
			n.Grade, n.Narrator, n.Book, n.Chapter)
		if n.SourceURL != "" {
			fmt.Fprintf(&sb, "- Source: %s\n", n.SourceURL)
		}
		sb.WriteString("\n")
		if n.Arabic != "" {
			fmt.Fprintf(&sb, "%s\n\n", n.Arabic)
		}
		fmt.Fprintf(&sb, "%s\n\n", n.English)
	}
	return sb.String()
}

// ReferencesMarkdown renders a reference outcome as markdown, listing
// failures after the resolved references.
func ReferencesMarkdown(out *search.ReferenceOutcome) string {
	var sb strings.Builder
	for _, r := range References(out.Results) {
		fmt.Fprintf(&sb, "## %s\n\n", r.Display)
		for _, l := range r.Verses {
			marker := " "
			if l.IsTarget && !r.Metadata.IsRange {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s [%d:%d] %s\n", marker, l.Chapter, l.Verse, l.English)
			if l.Arabic != "" {
				fmt.Fprintf(&sb, "  %s\n", l.Arabic)
			}
		}
		sb.WriteString("\n")
	}
	if len(out.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range out.Errors {
			fmt.Fprintf(&sb, "- %s: %s\n", e.Reference, e.Message)
		}
	}
	return sb.String()
}

// TopicMarkdown renders a topic outcome as markdown.
func TopicMarkdown(out *search.TopicOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", out.Topic.Title)
	if out.Topic.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", out.Topic.Description)
	}
	sb.WriteString(VersesMarkdown(out.Verses))
	sb.WriteString("\n")
	sb.WriteString(NarrationsMarkdown(out.Narrations))
	if len(out.Related) > 0 {
		slugs := make([]string, len(out.Related))
		for i, t := range out.Related {
			slugs[i] = t.Slug
		}
		fmt.Fprintf(&sb, "\nRelated topics: %s\n", strings.Join(slugs, ", "))
	}
	return sb.String()
}

func writeCount(sb *strings.Builder, n int, noun string) {
	fmt.Fprintf(sb, "Found %d %s", n, noun)
	if n != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
}
