package directoryrt

import (
	_ "embed"

	schema "github.com/hanpama/persongraph/internal/schema"
)

//go:embed schema.graphql
var sdl string

// SDL returns the GraphQL contract of the directory.
func SDL() string { return sdl }

// Schema builds the executable schema of the directory.
func Schema() (*schema.Schema, error) {
	return schema.BuildFromSource("schema.graphql", sdl)
}
