// Package validation runs a fixed set of questions through the MCP tools
// and checks that known passages come back near the top.
//
// Queries are data-driven: the built-in set lives in queries.yaml and can
// be replaced with a file of the same shape.
package validation

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/criterion/internal/mcp"
	"github.com/Aman-CERP/criterion/pkg/version"
)

//go:embed queries.yaml
var defaultQueries []byte

// DefaultLimit is the number of verses requested per query_quran call.
const DefaultLimit = 10

// Tier of a query. Negative queries only need to complete.
const (
	TierNegative = 0
	TierCore     = 1
	TierExtended = 2
)

// QuerySpec defines one question and the references expected for it.
type QuerySpec struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Question    string   `yaml:"question" json:"question"`
	Tool        string   `yaml:"tool" json:"tool"`
	Collections []string `yaml:"collections,omitempty" json:"collections,omitempty"`
	Grade       string   `yaml:"grade,omitempty" json:"grade,omitempty"`
	Expected    []string `yaml:"expected" json:"expected"`
	Notes       string   `yaml:"notes,omitempty" json:"notes,omitempty"`
	Tier        int      `yaml:"-" json:"tier"`
}

// QuerySet holds the queries of every tier.
type QuerySet struct {
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

// LoadQueries reads a query set from path, or the built-in set when path is
// empty.
func LoadQueries(path string) (*QuerySet, error) {
	if path == "" {
		return ParseQueries(defaultQueries)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
	}
	return ParseQueries(data)
}

// ParseQueries decodes and checks a YAML query set.
func ParseQueries(data []byte) (*QuerySet, error) {
	var set QuerySet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}

	tiers := []struct {
		specs []QuerySpec
		tier  int
	}{{set.Tier1, TierCore}, {set.Tier2, TierExtended}, {set.Negative, TierNegative}}

	seen := make(map[string]bool)
	for _, group := range tiers {
		for i := range group.specs {
			spec := &group.specs[i]
			spec.Tier = group.tier
			if spec.ID == "" {
				return nil, fmt.Errorf("query %q has no id", spec.Name)
			}
			if seen[spec.ID] {
				return nil, fmt.Errorf("duplicate query id %s", spec.ID)
			}
			seen[spec.ID] = true
			if spec.Tool == "" {
				spec.Tool = mcp.ToolQueryQuran
			}
			if spec.Tool != mcp.ToolQueryQuran && spec.Tool != mcp.ToolQueryHadith {
				return nil, fmt.Errorf("query %s: unsupported tool %q", spec.ID, spec.Tool)
			}
			if group.tier != TierNegative && len(spec.Expected) == 0 {
				return nil, fmt.Errorf("query %s: no expected references", spec.ID)
			}
		}
	}
	return &set, nil
}

// Count returns the number of queries across tiers.
func (s *QuerySet) Count() int {
	return len(s.Tier1) + len(s.Tier2) + len(s.Negative)
}

// Result captures the outcome of one query.
type Result struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	TopResults []string      `json:"top_results"`
	MatchedAt  int           `json:"matched_at"`
	Error      string        `json:"error,omitempty"`
}

// TierSummary counts passes within a tier.
type TierSummary struct {
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Total   int      `json:"total"`
}

// Rate returns the pass percentage, or 100 for an empty tier.
func (t TierSummary) Rate() float64 {
	if t.Total == 0 {
		return 100
	}
	return float64(t.Passed) / float64(t.Total) * 100
}

func (t *TierSummary) add(r Result) {
	t.Results = append(t.Results, r)
	t.Total++
	if r.Passed {
		t.Passed++
	}
}

// Report is the outcome of a full run.
type Report struct {
	Timestamp time.Time   `json:"timestamp"`
	Tier1     TierSummary `json:"tier1"`
	Tier2     TierSummary `json:"tier2"`
	Negative  TierSummary `json:"negative"`
}

// Validator calls the tools of an MCP server over an in-memory session.
type Validator struct {
	server *sdkmcp.ServerSession
	client *sdkmcp.ClientSession
}

// NewValidator connects a client to srv.
func NewValidator(ctx context.Context, srv *mcp.Server) (*Validator, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect server session: %w", err)
	}

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "criterion-validate", Version: version.Version}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = ss.Close()
		return nil, fmt.Errorf("failed to connect client session: %w", err)
	}
	return &Validator{server: ss, client: cs}, nil
}

// Close ends both sessions.
func (v *Validator) Close() error {
	cerr := v.client.Close()
	serr := v.server.Close()
	if cerr != nil {
		return cerr
	}
	return serr
}

// RunQuery executes a single query.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) Result {
	result := Result{Spec: spec, MatchedAt: -1}

	start := time.Now()
	res, err := v.client.CallTool(ctx, &sdkmcp.CallToolParams{Name: spec.Tool, Arguments: toolArgs(spec)})
	result.Duration = time.Since(start)

	// A rejected question still counts as handled for negative queries.
	if err != nil {
		result.Passed = spec.Tier == TierNegative
		result.Error = err.Error()
		return result
	}
	if res.IsError {
		result.Passed = spec.Tier == TierNegative
		result.Error = toolText(res)
		return result
	}

	refs, err := references(res.StructuredContent)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.TopResults = refs

	if spec.Tier == TierNegative {
		result.Passed = true
		return result
	}
	result.MatchedAt = firstMatch(refs, spec.Expected)
	result.Passed = result.MatchedAt >= 0
	return result
}

// Run executes every query in set, tier by tier.
func (v *Validator) Run(ctx context.Context, set *QuerySet) *Report {
	report := &Report{Timestamp: time.Now()}
	for _, spec := range set.Tier1 {
		report.Tier1.add(v.RunQuery(ctx, spec))
	}
	for _, spec := range set.Tier2 {
		report.Tier2.add(v.RunQuery(ctx, spec))
	}
	for _, spec := range set.Negative {
		report.Negative.add(v.RunQuery(ctx, spec))
	}
	return report
}

func toolArgs(spec QuerySpec) map[string]any {
	args := map[string]any{"question": spec.Question}
	switch spec.Tool {
	case mcp.ToolQueryQuran:
		args["limit"] = DefaultLimit
	case mcp.ToolQueryHadith:
		if len(spec.Collections) > 0 {
			args["collections"] = spec.Collections
		}
		if spec.Grade != "" {
			args["gradePreference"] = spec.Grade
		}
	}
	return args
}

// references pulls the ranked references out of a tool's structured output.
func references(structured any) ([]string, error) {
	data, err := json.Marshal(structured)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool output: %w", err)
	}
	var out struct {
		Verses []struct {
			Reference string `json:"reference"`
		} `json:"verses"`
		Hadiths []struct {
			Reference string `json:"reference"`
		} `json:"hadiths"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tool output: %w", err)
	}

	refs := make([]string, 0, len(out.Verses)+len(out.Hadiths))
	for _, v := range out.Verses {
		refs = append(refs, v.Reference)
	}
	for _, h := range out.Hadiths {
		refs = append(refs, h.Reference)
	}
	return refs, nil
}

// firstMatch returns the rank index of the first reference matching any
// expected entry, or -1. "2:255" matches "Al-Baqarah 2:255".
func firstMatch(refs, expected []string) int {
	for i, ref := range refs {
		for _, exp := range expected {
			if ref == exp || strings.HasSuffix(ref, " "+exp) {
				return i
			}
		}
	}
	return -1
}

func toolText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
