package model

import (
	"fmt"
	"strings"
)

// MissingFileError reports a required input file that does not exist.
// Fatal for the whole pipeline.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("required input file missing: %s", e.Path)
}

// SchemaError reports a required column absent from a source table. Fatal for
// the stage; the orchestrator decides whether the stage was required.
type SchemaError struct {
	Source string // which dataset, e.g. "ipress", "boundary"
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: required column %q not found", e.Source, e.Column)
}

// EncodingError reports that every candidate encoding failed to parse a file.
type EncodingError struct {
	Path  string
	Tried []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: no usable encoding (tried %s)", e.Path, strings.Join(e.Tried, ", "))
}
