// Package openapi embeds the console API contract.
package openapi

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	loadOnce sync.Once
	loaded   *openapi3.T
	loadErr  error
)

// Document returns the raw contract.
func Document() []byte {
	return specYAML
}

// GetSwagger parses and validates the embedded contract. The result is
// cached; callers must not mutate it.
func GetSwagger() (*openapi3.T, error) {
	loadOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(specYAML)
		if err != nil {
			loadErr = fmt.Errorf("load openapi contract: %w", err)
			return
		}
		if err := doc.Validate(loader.Context); err != nil {
			loadErr = fmt.Errorf("validate openapi contract: %w", err)
			return
		}
		loaded = doc
	})
	return loaded, loadErr
}
