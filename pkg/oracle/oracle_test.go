package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/parversion/pkg/ai"
	"github.com/OFFIS-RIT/parversion/pkg/analysis"
	"github.com/OFFIS-RIT/parversion/pkg/cache"
	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/dataset"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/store/memory"
)

// scriptedClient answers each request name with a fixed JSON document.
// failures makes the first n requests fail.
type scriptedClient struct {
	ai.MetricsRecorder

	mu       sync.Mutex
	answers  map[string]string
	failures int
	prompts  []string
	names    []string
}

func (s *scriptedClient) GenerateCompletionWithFormat(_ context.Context, name, _, prompt string, out any, opts ...ai.GenerateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.names = append(s.names, name)
	s.prompts = append(s.prompts, prompt)
	if s.failures > 0 {
		s.failures--
		return errors.New("rate limited")
	}

	o := ai.ApplyOptions(ai.GenerateOptions{}, opts...)
	if len(o.SystemPrompts) != 1 {
		return errors.New("missing system prompt")
	}

	answer, ok := s.answers[name]
	if !ok {
		return errors.New("unexpected request " + name)
	}
	return json.Unmarshal([]byte(answer), out)
}

func listMeta(t *testing.T) *analysis.MetaContext {
	t.Helper()
	root := document.Element("ul", map[string]string{"class": "items"},
		document.Element("li", nil, document.Text("A")),
		document.Element("li", nil, document.Text("B")),
	)
	ds, err := dataset.Build(root, common.DefaultHashTransformation())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return analysis.NewMetaContext(ds, &document.Document{Root: root})
}

func groupOf(t *testing.T, meta *analysis.MetaContext, description string) analysis.ContextGroup {
	t.Helper()
	for _, g := range meta.Groups() {
		if g.Representative().Data.Description == description {
			return g
		}
	}
	t.Fatalf("no group for %s", description)
	return analysis.ContextGroup{}
}

func newOracle(t *testing.T, client ai.Client, retries int) *Oracle {
	t.Helper()
	o, err := NewOracle(NewOracleParams{Client: client, MaxRetries: retries})
	if err != nil {
		t.Fatalf("NewOracle() error = %v", err)
	}
	return o
}

func TestProposeTransformations_KeepsAndNames(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{
		"text_elimination": `{"is_unmeaningful": false, "justification": "list item"}`,
		"key_naming":       `{"key": "Item Name", "description": "Name of a list item"}`,
	}}
	meta := listMeta(t)

	got, err := newOracle(t, client, 1).ProposeTransformations(context.Background(), meta, groupOf(t, meta, document.TextName))
	if err != nil {
		t.Fatalf("ProposeTransformations() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ProposeTransformations() got = %d transformations, want 1", len(got))
	}

	tr := got[0]
	if tr.Field != document.TextField || tr.Key != "item_name" || tr.Code != TrimCode || tr.Runtime != "cel" {
		t.Fatalf("ProposeTransformations() got = %+v", tr)
	}
	if tr.ID == "" || tr.Description != "Name of a list item" {
		t.Fatalf("ProposeTransformations() got = %+v", tr)
	}

	prompt := client.prompts[0]
	for _, want := range []string{"<!-- Target node: Start -->A<!-- Target node: End -->", "[Field]\ntext", "[Value]\nA"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestProposeTransformations_EliminatesAttribute(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{
		"attribute_elimination": `{"is_unmeaningful": true, "justification": "styling class"}`,
	}}
	meta := listMeta(t)

	got, err := newOracle(t, client, 1).ProposeTransformations(context.Background(), meta, groupOf(t, meta, "<ul>"))
	if err != nil {
		t.Fatalf("ProposeTransformations() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ProposeTransformations() got = %v, want none", got)
	}
	if !reflect.DeepEqual(client.names, []string{"attribute_elimination"}) {
		t.Fatalf("requests got = %v", client.names)
	}
}

func TestProposeTransformations_NoFields(t *testing.T) {
	client := &scriptedClient{}
	meta := listMeta(t)

	got, err := newOracle(t, client, 1).ProposeTransformations(context.Background(), meta, groupOf(t, meta, "<li>"))
	if err != nil {
		t.Fatalf("ProposeTransformations() error = %v", err)
	}
	if len(got) != 0 || len(client.names) != 0 {
		t.Fatalf("ProposeTransformations() got = %v after %d requests", got, len(client.names))
	}
}

func TestProposeTransformations_Retries(t *testing.T) {
	tests := []struct {
		name     string
		retries  int
		failures int
		wantErr  bool
	}{
		{"recovers", 3, 2, false},
		{"exhausted", 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{
				failures: tt.failures,
				answers: map[string]string{
					"text_elimination": `{"is_unmeaningful": false}`,
					"key_naming":       `{"key": "item"}`,
				},
			}
			meta := listMeta(t)

			_, err := newOracle(t, client, tt.retries).ProposeTransformations(context.Background(), meta, groupOf(t, meta, document.TextName))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProposeTransformations() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrOracle) {
				t.Fatalf("ProposeTransformations() error = %v, want ErrOracle", err)
			}
		})
	}
}

func TestProposeTransformations_EmptyKeyFails(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{
		"text_elimination": `{"is_unmeaningful": false}`,
		"key_naming":       `{"key": "  !! "}`,
	}}
	meta := listMeta(t)

	_, err := newOracle(t, client, 1).ProposeTransformations(context.Background(), meta, groupOf(t, meta, document.TextName))
	if !errors.Is(err, common.ErrOracle) {
		t.Fatalf("ProposeTransformations() error = %v, want ErrOracle", err)
	}
}

func TestOracle_DrivesAnalysis(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{
		"attribute_elimination": `{"is_unmeaningful": true}`,
		"text_elimination":      `{"is_unmeaningful": false}`,
		"key_naming":            `{"key": "item"}`,
	}}
	analyzer, err := analysis.NewAnalysisClient(analysis.NewAnalysisClientParams{
		Provider: memory.NewProvider(),
		Oracle:   newOracle(t, client, 1),
	})
	if err != nil {
		t.Fatalf("NewAnalysisClient() error = %v", err)
	}

	doc, err := document.Parse(`<ul class="items"><li>A</li><li>B</li><li>C</li></ul>`, document.FormatHTML, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	res, err := analyzer.Analyze(context.Background(), doc)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := []any{"A", "B", "C"}
	if !reflect.DeepEqual(res.Document["item"], want) {
		t.Fatalf("Document got = %v, want item = %v", res.Document, want)
	}
}

func TestNewOracle_RequiresClient(t *testing.T) {
	if _, err := NewOracle(NewOracleParams{}); !errors.Is(err, common.ErrOracle) {
		t.Fatalf("NewOracle() error = %v, want ErrOracle", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"title", "title"},
		{"Product Title", "product_title"},
		{"  price-in EUR ", "price_in_eur"},
		{"__id__", "id"},
		{"größe", "gr_e"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Fatalf("NormalizeKey(%q) got = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// sequenceClient returns the answers of a request name in order and repeats
// the last one.
type sequenceClient struct {
	ai.MetricsRecorder

	mu       sync.Mutex
	answers  map[string][]string
	calls    map[string]int
	thinking []string
}

func (s *sequenceClient) GenerateCompletionWithFormat(_ context.Context, name, _, _ string, out any, opts ...ai.GenerateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.thinking = append(s.thinking, ai.ApplyOptions(ai.GenerateOptions{}, opts...).Thinking)
	answers, ok := s.answers[name]
	if !ok {
		return errors.New("unexpected request " + name)
	}
	i := min(s.calls[name], len(answers)-1)
	s.calls[name]++
	return json.Unmarshal([]byte(answers[i]), out)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

var _ cache.Cache = (*mapCache)(nil)

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = data
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *mapCache) Close() error { return nil }

func TestProposeTransformations_CachedRetryAfterEmptyKey(t *testing.T) {
	inner := &sequenceClient{
		answers: map[string][]string{
			"text_elimination": {`{"is_unmeaningful": false}`},
			"key_naming":       {`{"key": " !! "}`, `{"key": "title"}`},
		},
		calls: map[string]int{},
	}
	store := &mapCache{entries: map[string][]byte{}}
	client := ai.NewCachingClient(ai.NewCachingClientParams{Client: inner, Cache: store})

	for run := 0; run < 2; run++ {
		meta := listMeta(t)
		got, err := newOracle(t, client, 3).ProposeTransformations(context.Background(), meta, groupOf(t, meta, document.TextName))
		if err != nil {
			t.Fatalf("run %d: ProposeTransformations() error = %v", run, err)
		}
		if len(got) != 1 || got[0].Key != "title" {
			t.Fatalf("run %d: ProposeTransformations() got = %+v, want key title", run, got)
		}
	}

	if inner.calls["key_naming"] != 2 {
		t.Fatalf("key_naming calls got = %d, want 2", inner.calls["key_naming"])
	}
	if inner.calls["text_elimination"] != 1 {
		t.Fatalf("text_elimination calls got = %d, want 1", inner.calls["text_elimination"])
	}
}

func TestProposeTransformations_MeaningfulFields(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{
		"attribute_elimination": `{"is_unmeaningful": false}`,
		"key_naming":            `{"key": "class"}`,
	}}
	meta := listMeta(t)
	meta.Profile = &common.Profile{MeaningfulFields: []string{document.TextField}}

	got, err := newOracle(t, client, 1).ProposeTransformations(context.Background(), meta, groupOf(t, meta, "<ul>"))
	if err != nil {
		t.Fatalf("ProposeTransformations() error = %v", err)
	}
	if len(got) != 0 || len(client.names) != 0 {
		t.Fatalf("ProposeTransformations() got = %v after %v", got, client.names)
	}
}

func TestNewOracle_Thinking(t *testing.T) {
	inner := &sequenceClient{
		answers: map[string][]string{
			"text_elimination": {`{"is_unmeaningful": true}`},
		},
		calls: map[string]int{},
	}
	o, err := NewOracle(NewOracleParams{Client: inner, Thinking: "low"})
	if err != nil {
		t.Fatalf("NewOracle() error = %v", err)
	}
	meta := listMeta(t)
	if _, err := o.ProposeTransformations(context.Background(), meta, groupOf(t, meta, document.TextName)); err != nil {
		t.Fatalf("ProposeTransformations() error = %v", err)
	}
	if !reflect.DeepEqual(inner.thinking, []string{"low"}) {
		t.Fatalf("thinking got = %v, want [low]", inner.thinking)
	}
}
