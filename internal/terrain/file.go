package terrain

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tim-ings/mmo/internal/protocol"
)

//go:embed chunk.schema.json
var chunkSchemaJSON string

var chunkSchema = jsonschema.MustCompileString("chunk.schema.json", chunkSchemaJSON)

// FileExt is the extension of chunk files in a chunk directory.
const FileExt = ".json.zst"

// Dir reads chunk definitions from <dir>/<id>.json.zst. Each file is
// zstd-compressed JSON and must validate against the chunk schema.
type Dir struct {
	root string
	dec  *zstd.Decoder
}

func NewDir(root string) (*Dir, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Dir{root: root, dec: dec}, nil
}

// Path returns the file that holds chunk id.
func (d *Dir) Path(id int) string {
	return filepath.Join(d.root, strconv.Itoa(id)+FileExt)
}

func (d *Dir) Fetch(_ context.Context, id int) (*protocol.ChunkDef, error) {
	raw, err := os.ReadFile(d.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrChunkNotFound
		}
		return nil, fmt.Errorf("read chunk %d: %w", id, err)
	}
	data, err := d.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress chunk %d: %w", id, err)
	}
	def, err := DecodeDef(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", id, err)
	}
	if def.ID != id {
		return nil, fmt.Errorf("chunk file %d holds chunk %d", id, def.ID)
	}
	return def, nil
}

func (d *Dir) Close() {
	d.dec.Close()
}

// DecodeDef validates JSON against the chunk schema, then decodes it.
func DecodeDef(data []byte) (*protocol.ChunkDef, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := chunkSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	var def protocol.ChunkDef
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &def, nil
}

// WriteDef writes def to <dir>/<id>.json.zst, creating dir if needed.
func WriteDef(dir string, def *protocol.ChunkDef) (string, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", err
	}
	defer enc.Close()

	path := filepath.Join(dir, strconv.Itoa(def.ID)+FileExt)
	if err := os.WriteFile(path, enc.EncodeAll(data, nil), 0o644); err != nil {
		return "", fmt.Errorf("write chunk %d: %w", def.ID, err)
	}
	return path, nil
}
