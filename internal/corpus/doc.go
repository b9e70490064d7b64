// Package corpus holds the static metadata of the two corpora: the chapter
// table of the verse corpus, the narration collections, the authenticity
// grade taxonomy, and the curated topic catalog.
package corpus
