package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// document is the YAML file layout:
//
//	templates:
//	  - id: crystal_crawl
//	    kind: monster
//	    ...
type document struct {
	Templates []Template `yaml:"templates"`
}

// Decode reads a YAML template list. Unknown fields are rejected so typos
// surface at load time instead of as silent zero values.
func Decode(r io.Reader) ([]Template, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return doc.Templates, nil
}

// LoadFile reads and validates a YAML template table.
func LoadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	ts, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return NewTable(ts...)
}

// Merge returns a table holding base overlaid by every template in over;
// entries in over replace base entries with the same id.
func Merge(base *Table, over []Template) (*Table, error) {
	merged := make([]Template, 0, base.Len()+len(over))
	replaced := make(map[string]bool, len(over))
	for _, t := range over {
		replaced[t.ID] = true
	}
	for _, id := range base.ids {
		if !replaced[id] {
			merged = append(merged, base.byID[id])
		}
	}
	merged = append(merged, over...)
	return NewTable(merged...)
}

// Reloadable is a Source backed by a built-in table plus an optional YAML
// overlay file. Reload swaps the whole table atomically; a failed reload
// keeps serving the previous one.
type Reloadable struct {
	base    *Table
	path    string
	current atomic.Pointer[Table]
}

// NewReloadable loads path (if non-empty) over base.
func NewReloadable(base *Table, path string) (*Reloadable, error) {
	r := &Reloadable{base: base, path: path}
	r.current.Store(base)
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reloadable) Lookup(id string) (Template, bool) {
	return r.current.Load().Lookup(id)
}

// Table returns the table currently served.
func (r *Reloadable) Table() *Table { return r.current.Load() }

// Reload re-reads the overlay file.
func (r *Reloadable) Reload() error {
	if r.path == "" {
		return nil
	}
	b, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read templates %s: %w", r.path, err)
	}
	over, err := Decode(bytes.NewReader(b))
	if err != nil {
		return err
	}
	t, err := Merge(r.base, over)
	if err != nil {
		return err
	}
	r.current.Store(t)
	return nil
}
