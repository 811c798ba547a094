package storagefx

import (
	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/config/configfx"
	"github.com/0x99f/dualsync/internal/embeddings"
	"github.com/0x99f/dualsync/internal/storage"
	"github.com/0x99f/dualsync/internal/storage/memory"
	"github.com/0x99f/dualsync/internal/storage/sqlgraph"
	"github.com/0x99f/dualsync/internal/storage/sqlvec"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Config   *configfx.Config
	Embedder embeddings.Embedder
}

// NewVectorStore selects the sqlite-vec store when a DB path is configured,
// the in-memory store otherwise.
func NewVectorStore(params Params) (storage.VectorStore, error) {
	if params.Config.DBPath == "" {
		return memory.NewVectorStore(), nil
	}
	return sqlvec.New(params.Config.DBPath+".vec", params.Embedder)
}

// NewGraphStore selects the sqlite store when a DB path is configured, the
// in-memory store otherwise.
func NewGraphStore(params Params) (storage.GraphStore, error) {
	if params.Config.DBPath == "" {
		return memory.NewGraphStore(), nil
	}
	// the two stores deliberately live in separate files: they must not share
	// a transaction manager, that is the whole point of the layer above
	return sqlgraph.New(params.Config.DBPath + ".graph")
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(
		NewVectorStore,
		NewGraphStore,
	),
)
