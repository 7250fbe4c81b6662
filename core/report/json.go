// Package report — JSON renderer.
// Serializes the transform report as indented JSON for machine consumers.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/ampify/core"
)

// JSONRenderer renders a transform report as JSON.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the report with indentation.
func (r *JSONRenderer) Render(report core.TransformReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
