package mutation

import "github.com/chameleon-db/entityview/pkg/engine"

// InitFactory installs the SQL mutation factory on a single engine,
// overriding whatever was registered globally.
func InitFactory(eng *engine.Engine) {
	eng.SetMutationFactory(NewFactory())
}
