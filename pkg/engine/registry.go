package engine

// Default factory, installed by the mutation package's init().
var mutationFactory MutationFactory

// RegisterMutationFactory installs the process-wide factory. The first
// registration wins.
func RegisterMutationFactory(factory MutationFactory) {
	if factory == nil {
		return
	}
	if mutationFactory == nil {
		mutationFactory = factory
	}
}

func getMutationFactory() MutationFactory {
	return mutationFactory
}

// SetMutationFactory overrides the registered factory for this engine only.
func (e *Engine) SetMutationFactory(factory MutationFactory) {
	e.factory = factory
}

// mutations resolves the factory for this engine, falling back to the
// registered one.
func (e *Engine) mutations() MutationFactory {
	if e.factory != nil {
		return e.factory
	}
	return getMutationFactory()
}
