package view

// DirtyKind classifies how much an attribute changed since it was loaded.
type DirtyKind int

const (
	// DirtyNone means nothing must be flushed.
	DirtyNone DirtyKind = iota
	// DirtyUpdated means the reference was swapped and the value must be
	// replaced or merged wholesale.
	DirtyUpdated
	// DirtyMutated means the same reference changed its contents.
	DirtyMutated
)

func (k DirtyKind) String() string {
	switch k {
	case DirtyNone:
		return "NONE"
	case DirtyUpdated:
		return "UPDATED"
	case DirtyMutated:
		return "MUTATED"
	default:
		return "UNKNOWN"
	}
}

// Max returns the stronger of two kinds.
func (k DirtyKind) Max(other DirtyKind) DirtyKind {
	if other > k {
		return other
	}
	return k
}
