package reconcile

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
)

// Init writes the default manifest to path. An existing file is never
// touched; it is reported with a warning and created is false.
func Init(log zerolog.Logger, path string) (created bool, err error) {
	created, err = manifest.WriteDefault(path)
	if err != nil {
		return false, fmt.Errorf("failed to create manifest: %w", err)
	}
	if !created {
		log.Warn().Str("path", path).Msg("manifest exists already, leaving it unchanged")
	}
	return created, nil
}
