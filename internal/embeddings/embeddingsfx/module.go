package embeddingsfx

import (
	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/config/configfx"
	"github.com/0x99f/dualsync/internal/embeddings"
)

// Params represents dependencies for the embedder
type Params struct {
	fx.In

	Config *configfx.Config
}

// NewEmbedder returns the API embedder when an embed URL is configured, the
// local hash embedder otherwise.
func NewEmbedder(params Params) embeddings.Embedder {
	if params.Config.EmbedURL != "" {
		return embeddings.NewAPI(params.Config.EmbedURL)
	}
	return embeddings.NewLocal(embeddings.DefaultDimension)
}

// Module provides the embedder
var Module = fx.Module("embeddings",
	fx.Provide(NewEmbedder),
)
