package weave

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDocumentFile reads a workflow document from path, which may be JSON or
// YAML (selected by file extension; .yaml/.yml decode via yaml.v3 through an
// intermediate map so both formats share the same json.Unmarshaler-driven
// decode path as Document's tagged unions). Structural and referential
// validation is the caller's responsibility (package validate); this only
// decodes the wire shape.
func LoadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weave: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("weave: parse %s: %w", path, err)
		}
		data, err = json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("weave: convert %s to JSON: %w", path, err)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("weave: decode %s: %w", path, err)
	}
	return &doc, nil
}
