package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/engine"
	"gopkg.in/yaml.v3"
)

// document converts p to generic values keyed by the JSON field names, so
// YAML and JSON output share one shape.
func document(p *engine.Pipeline, embeddings bool) (map[string]any, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if !embeddings {
		if icpDoc, ok := doc["icp"].(map[string]any); ok {
			if personas, ok := icpDoc["personas"].([]any); ok {
				for _, persona := range personas {
					if m, ok := persona.(map[string]any); ok {
						delete(m, "embedding")
					}
				}
			}
		}
	}
	// Step traces are kept in the recorder, not printed.
	if stages, ok := doc["stages"].([]any); ok {
		for _, s := range stages {
			if m, ok := s.(map[string]any); ok {
				delete(m, "results")
			}
		}
	}
	return doc, nil
}

func write(w io.Writer, p *engine.Pipeline, format string, embeddings bool) error {
	doc, err := document(p, embeddings)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
