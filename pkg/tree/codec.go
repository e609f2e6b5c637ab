package tree

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encode writes p as JSON. Parent links are not written.
func Encode(w io.Writer, p *Project) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	return nil
}

// Decode reads a project written by Encode and re-links it, so parents and
// paths are usable straight away. Contents keep their saved order.
func Decode(r io.Reader) (*Project, error) {
	var p Project
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	if p.Root != nil {
		p.Root.Parent = nil
		if p.Root.PathSegments == nil {
			p.Root.PathSegments = []string{}
		}
		relink(p.Root)
	}
	return &p, nil
}
