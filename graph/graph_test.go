package graph

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/emitter"
	"github.com/hupe1980/agentflow/stream"
)

// probeNode records delivered input and re-emits it downstream.
type probeNode struct {
	mu  sync.Mutex
	id  string
	out *stream.Source
	got []map[string]any
}

func newProbeNode(id string) *probeNode {
	return &probeNode{id: id, out: stream.NewSource()}
}

func (n *probeNode) ID() string                { return n.id }
func (n *probeNode) Events() *emitter.Emitter  { return n.out.Events() }
func (n *probeNode) Emit(value map[string]any) { n.out.Emit(value) }

func (n *probeNode) Accept(value map[string]any) {
	n.mu.Lock()
	n.got = append(n.got, value)
	n.mu.Unlock()

	n.out.Emit(value)
}

func (n *probeNode) Received() []map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]map[string]any(nil), n.got...)
}

func probeRegistry() *Registry {
	r := NewRegistry()
	r.Register("probe", func(id string, _ map[string]any, _ BuildContext) (Node, error) {
		return newProbeNode(id), nil
	})

	return r
}

func TestCompileAssignsSequentialIDs(t *testing.T) {
	r := probeRegistry()
	r.Register("other", func(id string, _ map[string]any, _ BuildContext) (Node, error) {
		return newProbeNode(id), nil
	})

	g, err := Compile([]NodeSpec{
		{Type: "probe"},
		{Type: "probe", ID: "named"},
		{Type: "probe"},
		{Type: "other"},
	}, func(o *Options) { o.Registry = r })
	require.NoError(t, err)

	assert.Equal(t, []string{"probe-1", "named", "probe-2", "other-1"}, g.Nodes())
}

func TestCompileUnknownType(t *testing.T) {
	_, err := Compile([]NodeSpec{{Type: "teleporter"}}, func(o *Options) { o.Registry = probeRegistry() })
	require.Error(t, err)

	var cfgErr *core.ConfigError

	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "teleporter")
}

func TestCompileDuplicateID(t *testing.T) {
	_, err := Compile([]NodeSpec{
		{Type: "probe", ID: "dup"},
		{Type: "probe", ID: "dup"},
	}, func(o *Options) { o.Registry = probeRegistry() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dup")
}

func TestCompileUnknownProducer(t *testing.T) {
	_, err := Compile([]NodeSpec{
		{Type: "probe", ID: "sink", In: map[string]EdgeList{
			"value": {{Node: "ghost", Out: "data"}},
		}},
	}, func(o *Options) { o.Registry = probeRegistry() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestWiringDeliversSelectedOutput(t *testing.T) {
	g, err := Compile([]NodeSpec{
		{Type: "probe", ID: "src"},
		{Type: "probe", ID: "dst", In: map[string]EdgeList{
			"text": {{Node: "src", Out: "message"}},
		}},
	}, func(o *Options) { o.Registry = probeRegistry() })
	require.NoError(t, err)

	src, _ := g.Node("src")
	src.(*probeNode).Emit(map[string]any{"message": "hello", "ignored": 42})

	dst, _ := g.Node("dst")
	got := dst.(*probeNode).Received()

	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"text": "hello"}, got[0])
}

func TestWiringSharedAccumulator(t *testing.T) {
	g, err := Compile([]NodeSpec{
		{Type: "probe", ID: "a"},
		{Type: "probe", ID: "b"},
		{Type: "probe", ID: "join", In: map[string]EdgeList{
			"left":  {{Node: "a", Out: "v"}},
			"right": {{Node: "b", Out: "v"}},
		}},
	}, func(o *Options) { o.Registry = probeRegistry() })
	require.NoError(t, err)

	a, _ := g.Node("a")
	b, _ := g.Node("b")
	join, _ := g.Node("join")

	a.(*probeNode).Emit(map[string]any{"v": 1})
	b.(*probeNode).Emit(map[string]any{"v": 2})

	got := join.(*probeNode).Received()
	require.Len(t, got, 2)

	// First delivery is partial, second sees both accumulated inputs.
	assert.Equal(t, map[string]any{"left": 1}, got[0])
	assert.Equal(t, map[string]any{"left": 1, "right": 2}, got[1])
}

func TestWiringJoinAllHoldsPartialDelivery(t *testing.T) {
	g, err := Compile([]NodeSpec{
		{Type: "probe", ID: "a"},
		{Type: "probe", ID: "b"},
		{Type: "probe", ID: "join", In: map[string]EdgeList{
			"left":  {{Node: "a", Out: "v"}},
			"right": {{Node: "b", Out: "v"}},
		}},
	}, func(o *Options) {
		o.Registry = probeRegistry()
		o.JoinPolicy = JoinAll
	})
	require.NoError(t, err)

	a, _ := g.Node("a")
	b, _ := g.Node("b")
	join, _ := g.Node("join")

	a.(*probeNode).Emit(map[string]any{"v": 1})
	assert.Empty(t, join.(*probeNode).Received())

	b.(*probeNode).Emit(map[string]any{"v": 2})

	got := join.(*probeNode).Received()
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"left": 1, "right": 2}, got[0])
}

func TestWiringMissingOutputKeySkipsDelivery(t *testing.T) {
	g, err := Compile([]NodeSpec{
		{Type: "probe", ID: "src"},
		{Type: "probe", ID: "dst", In: map[string]EdgeList{
			"text": {{Node: "src", Out: "absent"}},
		}},
	}, func(o *Options) { o.Registry = probeRegistry() })
	require.NoError(t, err)

	src, _ := g.Node("src")
	src.(*probeNode).Emit(map[string]any{"message": "hello"})

	dst, _ := g.Node("dst")
	assert.Empty(t, dst.(*probeNode).Received())
}

func TestEdgeListUnmarshalYAML(t *testing.T) {
	var single struct {
		In map[string]EdgeList `yaml:"in"`
	}

	err := yaml.Unmarshal([]byte("in:\n  prompt: {node: input-1, out: text}\n"), &single)
	require.NoError(t, err)
	assert.Equal(t, EdgeList{{Node: "input-1", Out: "text"}}, single.In["prompt"])

	var list struct {
		In map[string]EdgeList `yaml:"in"`
	}

	err = yaml.Unmarshal([]byte("in:\n  prompt:\n    - {node: a, out: x}\n    - {node: b, out: y}\n"), &list)
	require.NoError(t, err)
	assert.Equal(t, EdgeList{{Node: "a", Out: "x"}, {Node: "b", Out: "y"}}, list.In["prompt"])
}

func TestEdgeListUnmarshalJSON(t *testing.T) {
	var l EdgeList

	require.NoError(t, json.Unmarshal([]byte(`{"node":"a","out":"x"}`), &l))
	assert.Equal(t, EdgeList{{Node: "a", Out: "x"}}, l)

	require.NoError(t, json.Unmarshal([]byte(`[{"node":"a","out":"x"},{"node":"b"}]`), &l))
	assert.Equal(t, EdgeList{{Node: "a", Out: "x"}, {Node: "b"}}, l)
}

func TestLoadDocument(t *testing.T) {
	doc, err := LoadDocument(strings.NewReader(`
nodes:
  - type: config
    set:
      region: eu-central-1
  - type: probe
    id: consumer
    in:
      region: {node: config-1, out: region}
`))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)

	assert.Equal(t, "config", doc.Nodes[0].Type)
	assert.Equal(t, "eu-central-1", doc.Nodes[0].Set["region"])
	assert.Equal(t, "consumer", doc.Nodes[1].ID)
	assert.Equal(t, EdgeList{{Node: "config-1", Out: "region"}}, doc.Nodes[1].In["region"])
}
