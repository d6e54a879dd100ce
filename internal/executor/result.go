package executor

import (
	"errors"

	language "github.com/hanpama/persongraph/internal/language"
)

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Location is a 1-based position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

type extensionsError interface {
	Extensions() map[string]any
}

// locatedError converts a resolver error into a GraphQLError at path,
// carrying the extensions of the first error in the chain that has any.
func locatedError(err error, path Path, fields []*language.Field) GraphQLError {
	ge := GraphQLError{Message: err.Error(), Locations: fieldLocations(fields), Path: path}
	var ext extensionsError
	if errors.As(err, &ext) {
		ge.Extensions = ext.Extensions()
	}
	return ge
}

// fieldLocations returns the document positions of a merged field group.
func fieldLocations(fields []*language.Field) []Location {
	var locs []Location
	for _, f := range fields {
		if f == nil || f.Position == nil {
			continue
		}
		locs = append(locs, Location{Line: f.Position.Line, Column: f.Position.Column})
	}
	return locs
}
