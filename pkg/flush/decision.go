package flush

// ============================================================
// DECISION TABLES
// ============================================================

// outcome is what GetDirtyFlusher resolves a matching rule to.
type outcome int

const (
	// nothing to flush
	skip outcome = iota
	// fetch and merge through the full flusher
	fullFlush
	// rewrite the collection wholesale
	replaceOnly
	// replace, upsert when eligible
	replaceUpsert
	// compute actions from the two snapshots
	diffAgainstInitial
	// value equality diff, cloneable elements only
	deepEqualDiff
	// replay the recorded journal
	replayRecorded
	// recorded journal plus element flushes
	replayWithElements
	// only flush the elements in place
	elementsOnly
)

var outcomeNames = map[outcome]string{
	skip:               "skip",
	fullFlush:          "full",
	replaceOnly:        "replace",
	replaceUpsert:      "replace-upsert",
	diffAgainstInitial: "diff",
	deepEqualDiff:      "deep-equal-diff",
	replayRecorded:     "replay",
	replayWithElements: "replay-elements",
	elementsOnly:       "elements-only",
}

func (o outcome) String() string { return outcomeNames[o] }

// facts is the capability snapshot a decision is taken on. Side facts
// describe the key (maps only) and element descriptors; value facts
// describe the two snapshots.
type facts struct {
	keyFlush        bool
	keyDirtyCheck   bool
	keyDeepEq       bool
	keyEntity       bool
	keyIdentifiable bool

	elemFlush        bool
	elemDirtyCheck   bool
	elemDeepEq       bool
	elemEntity       bool
	elemIdentifiable bool

	identical      bool
	recording      bool
	hasActions     bool
	initialAbsent  bool
	initialEmpty   bool
	currentEmpty   bool
	replaceWithRef bool
}

type rule struct {
	name string
	when func(facts) bool
	then outcome
}

func always(facts) bool { return true }

// decide returns the first matching rule. Every table ends in a catch-all.
func decide(table []rule, fx facts) rule {
	for _, r := range table {
		if r.when(fx) {
			return r
		}
	}
	return rule{name: "none", then: fullFlush}
}

// changedReferenceTable applies when the attribute now holds a different
// container than the one it was loaded with.
var changedReferenceTable = []rule{
	{"empty-to-empty", func(x facts) bool { return x.currentEmpty && (x.initialAbsent || x.initialEmpty) }, skip},
	{"cleared", func(x facts) bool { return x.currentEmpty }, replaceOnly},
	{"replace-with-reference", func(x facts) bool { return x.initialAbsent && x.replaceWithRef }, replaceOnly},
	{"from-empty", func(x facts) bool { return x.initialEmpty }, replaceOnly},

	{"key-dirty/elem-dirty", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck && x.elemFlush && x.elemDirtyCheck }, diffAgainstInitial},
	{"key-dirty/elem-deep-equal", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck && x.elemFlush && x.elemDeepEq }, deepEqualDiff},
	{"key-dirty/elem-entity", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck && x.elemFlush && x.elemEntity }, fullFlush},
	{"key-dirty/elem-opaque", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck && x.elemFlush }, replaceOnly},
	{"key-dirty", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck }, diffAgainstInitial},
	{"key-deep-equal-or-entity", func(x facts) bool { return x.keyFlush && (x.keyDeepEq || x.keyEntity) }, fullFlush},
	{"key-opaque", func(x facts) bool { return x.keyFlush }, replaceOnly},

	{"elem-dirty", func(x facts) bool { return x.elemFlush && x.elemDirtyCheck }, diffAgainstInitial},
	{"elem-deep-equal", func(x facts) bool { return x.elemFlush && x.elemDeepEq }, deepEqualDiff},
	{"elem-entity", func(x facts) bool { return x.elemFlush && x.elemEntity }, fullFlush},
	{"elem-opaque", func(x facts) bool { return x.elemFlush }, replaceOnly},
	{"immutable", always, diffAgainstInitial},
}

// sameReferenceTable applies when the container was mutated in place.
var sameReferenceTable = []rule{
	{"untracked-empty", func(x facts) bool { return !x.recording && x.currentEmpty }, skip},
	{"clean-empty", func(x facts) bool { return x.recording && !x.hasActions && x.currentEmpty }, skip},
	{"untracked-immutable", func(x facts) bool { return !x.recording && !x.keyFlush && !x.elemFlush }, skip},

	{"key-dirty/elem-dirty", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck && x.elemFlush && x.elemDirtyCheck }, replayRecorded},
	{"key-dirty/elem-deep-equal-or-entity", func(x facts) bool {
		return x.keyFlush && x.keyDirtyCheck && x.elemFlush && (x.elemDeepEq || x.elemEntity)
	}, replayWithElements},
	{"key-dirty/elem-opaque", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck && x.elemFlush }, replaceUpsert},
	{"key-dirty", func(x facts) bool { return x.keyFlush && x.keyDirtyCheck }, replayRecorded},
	{"key-unchecked", func(x facts) bool { return x.keyFlush }, fullFlush},

	{"elem-dirty", func(x facts) bool { return x.elemFlush && x.elemDirtyCheck }, replayRecorded},
	{"elem-deep-equal-or-entity", func(x facts) bool { return x.elemFlush && (x.elemDeepEq || x.elemEntity) }, replayWithElements},
	{"elem-opaque", func(x facts) bool { return x.elemFlush }, replaceUpsert},
	{"immutable", always, replayRecorded},
}

// notUpdatableTable applies to cascade-only associations whose membership
// is never written; only element changes may be flushed.
var notUpdatableTable = []rule{
	{"pass-through", func(x facts) bool { return !x.keyFlush && !x.elemFlush }, skip},
	{"replaced", func(x facts) bool { return !x.identical }, skip},
	{"not-identifiable", func(x facts) bool {
		return (x.keyFlush && !x.keyIdentifiable) || (x.elemFlush && !x.elemIdentifiable)
	}, fullFlush},
	{"elements", always, elementsOnly},
}
