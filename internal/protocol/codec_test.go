package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/net/packet"
)

func sampleTick() *TickSnapshot {
	return &TickSnapshot{
		Tick: 42,
		Self: PlayerDef{ID: "self", CharID: 1, Name: "Tim", Level: 5, Race: RaceElf, Model: "elf", Health: 30, MaxHealth: 40, Position: coord.Point{X: 10, Y: -3}},
		Units: []UnitDef{{
			ID: "u1", Name: "goblin", Level: 2, Model: "goblin", Health: 8, MaxHealth: 10,
			Running: true, Position: coord.Point{X: 1, Y: 2},
			MoveQueue: []coord.Point{{X: 2, Y: 2}, {X: 3, Y: 2}}, Target: "self",
		}},
		Players:     []PlayerDef{{ID: "p2", CharID: 9, Name: "Ann", Level: 3, Race: RaceOrc, Model: "orc", Health: 12, MaxHealth: 12, Position: coord.Point{X: 4, Y: 4}}},
		GroundItems: []GroundItemDef{{ID: "g1", ItemID: 40308, Name: "adena", Model: "coin", Count: 100, Position: coord.Point{X: 5, Y: 6}}},
	}
}

func TestTickCodec(t *testing.T) {
	in := sampleTick()
	data := EncodeTick(in)
	if data[0] != packet.S_OPCODE_TICK {
		t.Fatalf("opcode = %d", data[0])
	}
	out, err := DecodeTick(packet.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("decoded tick mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestTickCodecRejectsTruncated(t *testing.T) {
	data := EncodeTick(sampleTick())
	_, err := DecodeTick(packet.NewReader(data[:len(data)-3]))
	if !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
}

func TestChunkListCodec(t *testing.T) {
	in := &ChunkList{
		Center: coord.Point{X: 32, Y: 32},
		Chunks: []ChunkDef{{
			ID: 3, X: 1, Y: -1,
			Heights: []float64{0, 0.5, 1.25, -2},
			Doodads: []DoodadDef{{
				UUID: "d1", Model: "tree", X: 4, Y: 5, Rotation: 0.5, Scale: 2, Elevation: 0.25,
				Navblocks: []NavblockDef{{X: 0, Y: 0}, {X: 1, Y: 0}},
			}},
		}},
	}
	out, err := DecodeChunkList(packet.NewReader(EncodeChunkList(in)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("decoded chunk list mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestChunkListRejectsBogusHeightCount(t *testing.T) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CHUNK_LIST)
	w.WriteD(0)
	w.WriteD(0)
	w.WriteH(1)
	w.WriteD(1) // id
	w.WriteD(0)
	w.WriteD(0)
	w.WriteD(1_000_000) // heights, far more than the payload holds
	if _, err := DecodeChunkList(packet.NewReader(w.Bytes())); !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
}
