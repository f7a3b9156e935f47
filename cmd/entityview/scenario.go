package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/flush"
	"github.com/chameleon-db/entityview/pkg/view"
)

// Scenario describes one plural attribute of a view: what was loaded, what
// the application did to it, and how it should be flushed.
//
//	entity: User
//	attribute: scores
//	kind: map
//	owner: 1
//	initial: {a: "1", b: "2"}
//	changes:
//	  - remove: a
//	  - put: {key: c, value: "3"}
type Scenario struct {
	Entity    string      `yaml:"entity"`
	Attribute string      `yaml:"attribute"`
	Relation  string      `yaml:"relation,omitempty"`
	Kind      string      `yaml:"kind"` // map, list or set
	Owner     interface{} `yaml:"owner"`
	NewOwner  bool        `yaml:"new_owner,omitempty"`
	Strategy  string      `yaml:"strategy,omitempty"`

	// Initial is the loaded value; a mapping for maps, a sequence otherwise.
	// Null leaves the attribute unset.
	Initial yaml.Node `yaml:"initial"`

	// Changes are recorded on a tracked container wrapping Initial.
	Changes []Change `yaml:"changes,omitempty"`

	// Replace assigns a plain container instead, so nothing is recorded.
	Replace yaml.Node `yaml:"replace,omitempty"`
}

// Change is one recorded operation. Exactly one field is set.
type Change struct {
	Put      *KeyValue   `yaml:"put,omitempty"`
	Remove   interface{} `yaml:"remove,omitempty"`
	Add      interface{} `yaml:"add,omitempty"`
	Set      *IndexValue `yaml:"set,omitempty"`
	RemoveAt *int        `yaml:"remove_at,omitempty"`
	Clear    bool        `yaml:"clear,omitempty"`
}

type KeyValue struct {
	Key   interface{} `yaml:"key"`
	Value interface{} `yaml:"value"`
}

type IndexValue struct {
	Index int         `yaml:"index"`
	Value interface{} `yaml:"value"`
}

// LoadScenario reads a YAML scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and checks a scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.Entity == "" || sc.Attribute == "" {
		return nil, fmt.Errorf("scenario needs an entity and an attribute")
	}
	if sc.Relation == "" {
		sc.Relation = sc.Attribute
	}
	switch sc.Kind {
	case "map", "list", "set":
	default:
		return nil, fmt.Errorf("unknown kind %q: use map, list or set", sc.Kind)
	}
	if len(sc.Changes) > 0 && sc.replaces() {
		return nil, fmt.Errorf("changes and replace are mutually exclusive")
	}
	return &sc, nil
}

// replaces reports whether the scenario assigns a new container.
func (sc *Scenario) replaces() bool { return sc.Replace.Kind != 0 }

// ─────────────────────────────────────────────────────────────
// Containers
// ─────────────────────────────────────────────────────────────

func (sc *Scenario) container(node *yaml.Node) (interface{}, error) {
	if node == nil || node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}

	if sc.Kind == "map" {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: a map attribute needs a mapping", node.Line)
		}
		m := collection.NewOrderedMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			var k, v interface{}
			if err := node.Content[i].Decode(&k); err != nil {
				return nil, err
			}
			if err := node.Content[i+1].Decode(&v); err != nil {
				return nil, err
			}
			m.Put(k, v)
		}
		return m, nil
	}

	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: a %s attribute needs a sequence", node.Line, sc.Kind)
	}
	var items []interface{}
	if err := node.Decode(&items); err != nil {
		return nil, err
	}
	if sc.Kind == "list" {
		return collection.NewList(items...), nil
	}
	return collection.NewSet(items...), nil
}

// Values returns the loaded and current attribute values. A recorded
// scenario returns the same tracked container twice, as a loaded view would.
func (sc *Scenario) Values() (initial, current interface{}, err error) {
	initial, err = sc.container(&sc.Initial)
	if err != nil {
		return nil, nil, err
	}

	if sc.replaces() {
		current, err = sc.container(&sc.Replace)
		return initial, current, err
	}

	if initial == nil {
		if len(sc.Changes) > 0 {
			return nil, nil, fmt.Errorf("changes need an initial value")
		}
		return nil, nil, nil
	}

	var rec interface{}
	switch c := initial.(type) {
	case *collection.OrderedMap:
		rec = collection.NewRecordingMap(c)
	case collection.Collection:
		rec = collection.NewRecordingCollection(c)
	}
	for i, ch := range sc.Changes {
		if err := ch.apply(rec); err != nil {
			return nil, nil, fmt.Errorf("change %d: %w", i+1, err)
		}
	}
	return rec, rec, nil
}

func (ch Change) apply(target interface{}) error {
	switch t := target.(type) {
	case *collection.RecordingMap:
		switch {
		case ch.Put != nil:
			t.Put(ch.Put.Key, ch.Put.Value)
		case ch.Remove != nil:
			t.Remove(ch.Remove)
		case ch.Clear:
			t.Clear()
		default:
			return fmt.Errorf("maps support put, remove and clear")
		}
	case *collection.RecordingCollection:
		switch {
		case ch.Add != nil:
			t.Add(ch.Add)
		case ch.Remove != nil:
			t.Remove(ch.Remove)
		case ch.Clear:
			t.Clear()
		case ch.Set != nil || ch.RemoveAt != nil:
			if !t.Ordered() {
				return fmt.Errorf("sets have no indexes")
			}
			if ch.Set != nil {
				if ch.Set.Index < 0 || ch.Set.Index >= t.Len() {
					return fmt.Errorf("index %d out of range", ch.Set.Index)
				}
				t.Set(ch.Set.Index, ch.Set.Value)
				return nil
			}
			if *ch.RemoveAt < 0 || *ch.RemoveAt >= t.Len() {
				return fmt.Errorf("index %d out of range", *ch.RemoveAt)
			}
			t.RemoveAt(*ch.RemoveAt)
		default:
			return fmt.Errorf("collections support add, remove, set, remove_at and clear")
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────
// Owner, entity and flusher
// ─────────────────────────────────────────────────────────────

// scenarioView is the owning view of the attribute.
type scenarioView struct {
	view.State
	value interface{}
}

// scenarioEntity stands in for the backing entity on entity flushes.
type scenarioEntity struct {
	value interface{}
}

// OwnerView builds the owning view with initial as its loaded snapshot.
func (sc *Scenario) OwnerView(initial, current interface{}) *scenarioView {
	state := view.Loaded(sc.Owner)
	if sc.NewOwner {
		state = view.Created(sc.Owner)
	}
	v := &scenarioView{State: state, value: current}
	v.SetInitialValue(sc.Attribute, initial)
	return v
}

// Flusher builds the plural flusher for the attribute. Keys and elements
// are immutable basic values.
func (sc *Scenario) Flusher() (*flush.PluralFlusher, error) {
	basic := flush.BasicDescriptor(view.ImmutableType{})
	cfg := flush.PluralConfig{
		Attribute: sc.Attribute,
		Entity:    sc.Entity,
		Relation:  sc.Relation,
		Element:   basic,
		ViewAccessor: flush.Accessor{
			Name: sc.Attribute,
			Get:  func(o interface{}) interface{} { return o.(*scenarioView).value },
			Set:  func(o, v interface{}) { o.(*scenarioView).value = v },
		},
		EntityAccessor: flush.Accessor{
			Name: sc.Attribute,
			Get:  func(o interface{}) interface{} { return o.(*scenarioEntity).value },
			Set:  func(o, v interface{}) { o.(*scenarioEntity).value = v },
		},
	}

	switch sc.Kind {
	case "map":
		cfg.Key = basic
		return flush.NewMapFlusher(cfg)
	case "list":
		return flush.NewListFlusher(cfg)
	default:
		return flush.NewSetFlusher(cfg)
	}
}

// Schema declares just enough for the scenario's collection table.
func (sc *Scenario) Schema() *engine.Schema {
	rel := &engine.Relation{Name: sc.Relation, Kind: engine.RelationElementCollection}
	switch sc.Kind {
	case "map":
		rel.Kind = engine.RelationMap
	case "list":
		rel.Ordered = true
	}
	return &engine.Schema{
		Entities: []*engine.Entity{
			{
				Name: sc.Entity,
				Fields: map[string]*engine.Field{
					"id": {Name: "id", Type: engine.FieldTypeInt, PrimaryKey: true},
				},
				Relations: map[string]*engine.Relation{sc.Relation: rel},
			},
		},
	}
}

// loadedCopy returns a copy of the state v was loaded with, so entity
// flushes start from what the database held.
func loadedCopy(v interface{}) interface{} {
	switch c := v.(type) {
	case *collection.RecordingMap:
		return c.InitialVersion()
	case *collection.RecordingCollection:
		return c.InitialVersion()
	case *collection.OrderedMap:
		return c.Clone()
	case collection.Collection:
		return c.Clone()
	}
	return nil
}
