package persist

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"terminus-core/internal/worldgen"
)

const (
	SchemaVersion = 1

	KindOverrides = "overrides"
	KindEntities  = "entities"
)

// Header tags every document. Readers dispatch on Kind and reject versions
// they do not understand.
type Header struct {
	Version int    `json:"version"`
	Kind    string `json:"kind"`
}

// OverridesDoc is the persisted form of one chunk's overrides.
type OverridesDoc struct {
	Header
	Chunk     [3]int     `json:"chunk"`
	Overrides []Override `json:"overrides"`
}

// EntitySnapshot is a tick-boundary copy of every entity. Component bodies
// are tagged by their stable kind name, never by in-memory type ids.
type EntitySnapshot struct {
	Header
	WorldID   string         `json:"world_id"`
	Seed      int64          `json:"seed"`
	Tick      uint64         `json:"tick"`
	NextID    uint64         `json:"next_id"`
	Populated [][3]int       `json:"populated"`
	Entities  []EntityRecord `json:"entities"`
}

type EntityRecord struct {
	ID         uint64            `json:"id"`
	Components []ComponentRecord `json:"components"`
}

type ComponentRecord struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const schemaBaseURL = "https://terminus-core.local/"

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		out := make(map[string]*jsonschema.Schema)
		for _, kind := range []string{KindOverrides, KindEntities} {
			name := "schemas/" + kind + ".schema.json"
			raw, err := schemaFS.ReadFile(name)
			if err != nil {
				schemasErr = err
				return
			}
			url := schemaBaseURL + name
			if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
				schemasErr = err
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				schemasErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			out[kind] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

func compress(doc any) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(raw, nil), nil
}

// decompress inflates blob and checks it against the schema for kind before
// decoding it into out.
func decompress(blob []byte, kind string, out any) error {
	raw, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	return validateAndDecode(raw, kind, out)
}

func validateAndDecode(raw []byte, kind string, out any) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	if err := all[kind].Validate(generic); err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// EncodeOverrides serializes a chunk's overrides.
func EncodeOverrides(key worldgen.Coord, overrides []Override) ([]byte, error) {
	if overrides == nil {
		overrides = []Override{}
	}
	return compress(OverridesDoc{
		Header:    Header{Version: SchemaVersion, Kind: KindOverrides},
		Chunk:     [3]int{key.CX, key.CY, key.Z},
		Overrides: overrides,
	})
}

// DecodeOverrides reverses EncodeOverrides and checks that the document
// belongs to key.
func DecodeOverrides(key worldgen.Coord, blob []byte) ([]Override, error) {
	var doc OverridesDoc
	if err := decompress(blob, KindOverrides, &doc); err != nil {
		return nil, err
	}
	if doc.Chunk != [3]int{key.CX, key.CY, key.Z} {
		return nil, fmt.Errorf("overrides document for chunk %v read as %v", doc.Chunk, key)
	}
	return doc.Overrides, nil
}

// EncodeSnapshot serializes an entity snapshot, stamping its header.
func EncodeSnapshot(snap *EntitySnapshot) ([]byte, error) {
	return compress(stamped(snap))
}

func stamped(snap *EntitySnapshot) EntitySnapshot {
	doc := *snap
	doc.Header = Header{Version: SchemaVersion, Kind: KindEntities}
	if doc.Entities == nil {
		doc.Entities = []EntityRecord{}
	}
	if doc.Populated == nil {
		doc.Populated = [][3]int{}
	}
	return doc
}

func DecodeSnapshot(blob []byte) (*EntitySnapshot, error) {
	var snap EntitySnapshot
	if err := decompress(blob, KindEntities, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
