package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/validate"
)

// fileRegistry resolves workflow step workflowIds to documents loaded from a
// directory of *.yaml/*.yml/*.json files, each keyed by its own doc.ID.
type fileRegistry struct {
	docs map[string]*weave.Document
}

func loadRegistry(dir string) (*fileRegistry, error) {
	reg := &fileRegistry{docs: make(map[string]*weave.Document)}
	if dir == "" {
		return reg, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read workflow dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		doc, err := weave.LoadDocumentFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := validate.Document(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		reg.docs[doc.ID] = doc
	}
	return reg, nil
}

func (r *fileRegistry) Resolve(workflowID string) (*weave.Document, bool) {
	doc, ok := r.docs[workflowID]
	return doc, ok
}

func (r *fileRegistry) ids() []string {
	out := make([]string, 0, len(r.docs))
	for id := range r.docs {
		out = append(out, id)
	}
	return out
}
