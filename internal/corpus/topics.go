package corpus

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var topicsYAML []byte

// Topic is a curated subject with a search query tuned for retrieval.
type Topic struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Title       string   `yaml:"title" json:"title"`
	Query       string   `yaml:"query" json:"query"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Related     []string `yaml:"related" json:"related"`
}

type topicFile struct {
	Topics []Topic `yaml:"topics"`
}

// TopicCatalog is an ordered, slug-indexed set of topics.
type TopicCatalog struct {
	topics []Topic
	bySlug map[string]int
}

// ParseTopics decodes a YAML topic catalog and checks slug uniqueness and
// that related slugs resolve.
func ParseTopics(data []byte) (*TopicCatalog, error) {
	var f topicFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}

	c := &TopicCatalog{
		topics: f.Topics,
		bySlug: make(map[string]int, len(f.Topics)),
	}
	for i, t := range f.Topics {
		if t.Slug == "" || t.Query == "" {
			return nil, fmt.Errorf("topic %d: slug and query are required", i)
		}
		if _, dup := c.bySlug[t.Slug]; dup {
			return nil, fmt.Errorf("duplicate topic slug %q", t.Slug)
		}
		c.bySlug[t.Slug] = i
	}
	for _, t := range f.Topics {
		for _, r := range t.Related {
			if _, ok := c.bySlug[r]; !ok {
				return nil, fmt.Errorf("topic %q: unknown related topic %q", t.Slug, r)
			}
		}
	}
	return c, nil
}

// All returns the topics in catalog order.
func (c *TopicCatalog) All() []Topic {
	out := make([]Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

// Get returns the topic with the given slug.
func (c *TopicCatalog) Get(slug string) (Topic, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Topic{}, false
	}
	return c.topics[i], true
}

// Related returns the topics related to slug.
func (c *TopicCatalog) Related(slug string) []Topic {
	t, ok := c.Get(slug)
	if !ok {
		return nil
	}
	out := make([]Topic, 0, len(t.Related))
	for _, r := range t.Related {
		if rt, ok := c.Get(r); ok {
			out = append(out, rt)
		}
	}
	return out
}

var (
	defaultTopics     *TopicCatalog
	defaultTopicsErr  error
	defaultTopicsOnce sync.Once
)

// Topics returns the built-in topic catalog.
func Topics() *TopicCatalog {
	defaultTopicsOnce.Do(func() {
		defaultTopics, defaultTopicsErr = ParseTopics(topicsYAML)
	})
	if defaultTopicsErr != nil {
		panic(fmt.Sprintf("corpus: built-in topic catalog is invalid: %v", defaultTopicsErr))
	}
	return defaultTopics
}
