package terrain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/tim-ings/mmo/internal/protocol"
)

func TestDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	def := flatDef(3, 4, 2)
	def.Doodads = []protocol.DoodadDef{{UUID: "u1", Model: "tree.glb", X: 1, Y: 2, Scale: 1.5,
		Navblocks: []protocol.NavblockDef{{X: 0, Y: 1}}}}
	if _, err := WriteDef(dir, &def); err != nil {
		t.Fatalf("WriteDef: %v", err)
	}

	src, err := NewDir(dir)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	defer src.Close()

	got, err := src.Fetch(context.Background(), def.ID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !reflect.DeepEqual(*got, def) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Doodads, def.Doodads)
	}

	if _, err := src.Fetch(context.Background(), 777); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("missing file err = %v, want ErrChunkNotFound", err)
	}
}

func TestDirRejectsSchemaViolations(t *testing.T) {
	dir := t.TempDir()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()

	cases := map[int]string{
		1: `{"id":1,"x":0,"y":0,"heights":[1,2,3]}`,
		2: `{"id":2,"x":0,"y":0,"heights":"flat"}`,
		3: `{"x":0,"y":0}`,
	}
	for id, body := range cases {
		path := filepath.Join(dir, strconv.Itoa(id)+FileExt)
		if err := os.WriteFile(path, enc.EncodeAll([]byte(body), nil), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src, err := NewDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	for id := range cases {
		_, err := src.Fetch(context.Background(), id)
		if err == nil {
			t.Fatalf("chunk %d: invalid file accepted", id)
		}
		if errors.Is(err, ErrChunkNotFound) {
			t.Fatalf("chunk %d: schema failure reported as not found", id)
		}
	}
}

func TestDirRejectsMismatchedID(t *testing.T) {
	dir := t.TempDir()
	def := flatDef(0, 0, 0)
	path, err := WriteDef(dir, &def)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(path, filepath.Join(dir, "99"+FileExt)); err != nil {
		t.Fatal(err)
	}
	src, _ := NewDir(dir)
	defer src.Close()
	if _, err := src.Fetch(context.Background(), 99); err == nil {
		t.Fatal("file holding another chunk accepted")
	}
}

func TestCachedFetchesOnce(t *testing.T) {
	inner := newMapSource(flatDef(0, 0, 1))
	c, err := NewCached(inner, 0)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer c.Close()

	id := gridID(0, 0)
	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(context.Background(), id); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if n := inner.count(id); n != 1 {
		t.Fatalf("inner fetches = %d, want 1", n)
	}

	c.Forget(id)
	if _, err := c.Fetch(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if n := inner.count(id); n != 2 {
		t.Fatalf("inner fetches after Forget = %d, want 2", n)
	}
}

func TestChainFallsThroughNotFound(t *testing.T) {
	staged := NewStaged()
	disk := newMapSource(flatDef(1, 0, 0))
	chain := Chain{staged, disk}

	staged.Stage([]protocol.ChunkDef{flatDef(0, 0, 5)})
	if d, err := chain.Fetch(context.Background(), gridID(0, 0)); err != nil || d.Heights[0] != 5 {
		t.Fatalf("staged fetch = %v, %v", d, err)
	}
	if _, err := chain.Fetch(context.Background(), gridID(1, 0)); err != nil {
		t.Fatalf("fallthrough fetch: %v", err)
	}
	if disk.count(gridID(0, 0)) != 0 {
		t.Fatal("chain asked disk for a staged chunk")
	}
	if _, err := chain.Fetch(context.Background(), 500); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("err = %v, want ErrChunkNotFound", err)
	}

	boom := errors.New("disk on fire")
	disk.fail[gridID(2, 0)] = boom
	if _, err := chain.Fetch(context.Background(), gridID(2, 0)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestStagedForget(t *testing.T) {
	s := NewStaged()
	s.Stage([]protocol.ChunkDef{flatDef(0, 0, 0), flatDef(1, 0, 0), {ID: 99}})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (def without heights skipped)", s.Len())
	}
	s.Forget(gridID(0, 0))
	if _, err := s.Fetch(context.Background(), gridID(0, 0)); !errors.Is(err, ErrChunkNotFound) {
		t.Fatal("Forget kept the def")
	}
	if _, err := s.Fetch(context.Background(), gridID(1, 0)); err != nil {
		t.Fatal("Forget dropped another def")
	}
}
