package gateway

import (
	"os"

	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/render/snapshot"
)

// artifactBody streams a PDF and removes its directory once fasthttp closes the stream
type artifactBody struct {
	*os.File
	dir    string
	logger *zap.Logger
}

func openArtifact(a *snapshot.PdfArtifact, logger *zap.Logger) (*artifactBody, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	return &artifactBody{File: f, dir: a.Dir, logger: logger}, nil
}

func (b *artifactBody) Close() error {
	err := b.File.Close()
	if rmErr := os.RemoveAll(b.dir); rmErr != nil {
		b.logger.Warn("Failed to remove artifact directory",
			zap.String("dir", b.dir),
			zap.Error(rmErr))
	}
	return err
}
