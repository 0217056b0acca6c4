package protocol

import (
	"errors"
	"fmt"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/net/packet"
)

// ErrShortPacket is returned when a payload ends before its fields do.
var ErrShortPacket = errors.New("short packet")

// maxListLen bounds any length prefix read off the wire.
const maxListLen = 1 << 16

// DecodeTick reads an S_TICK payload.
func DecodeTick(r *packet.Reader) (*TickSnapshot, error) {
	snap := &TickSnapshot{Tick: r.ReadQ()}
	snap.Self = readPlayer(r)

	n, err := readLen(r)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	snap.Units = make([]UnitDef, 0, n)
	for i := 0; i < n; i++ {
		snap.Units = append(snap.Units, readUnit(r))
	}

	if n, err = readLen(r); err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}
	snap.Players = make([]PlayerDef, 0, n)
	for i := 0; i < n; i++ {
		snap.Players = append(snap.Players, readPlayer(r))
	}

	if n, err = readLen(r); err != nil {
		return nil, fmt.Errorf("ground items: %w", err)
	}
	snap.GroundItems = make([]GroundItemDef, 0, n)
	for i := 0; i < n; i++ {
		snap.GroundItems = append(snap.GroundItems, readGroundItem(r))
	}

	if r.Short() {
		return nil, fmt.Errorf("tick %d: %w", snap.Tick, ErrShortPacket)
	}
	return snap, nil
}

// EncodeTick builds an S_TICK payload.
func EncodeTick(snap *TickSnapshot) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_TICK)
	w.WriteQ(snap.Tick)
	writePlayer(w, &snap.Self)
	w.WriteH(uint16(len(snap.Units)))
	for i := range snap.Units {
		writeUnit(w, &snap.Units[i])
	}
	w.WriteH(uint16(len(snap.Players)))
	for i := range snap.Players {
		writePlayer(w, &snap.Players[i])
	}
	w.WriteH(uint16(len(snap.GroundItems)))
	for i := range snap.GroundItems {
		writeGroundItem(w, &snap.GroundItems[i])
	}
	return w.Bytes()
}

// DecodeChunkList reads an S_CHUNK_LIST payload.
func DecodeChunkList(r *packet.Reader) (*ChunkList, error) {
	list := &ChunkList{Center: readPoint(r)}
	n, err := readLen(r)
	if err != nil {
		return nil, fmt.Errorf("chunks: %w", err)
	}
	list.Chunks = make([]ChunkDef, 0, n)
	for i := 0; i < n; i++ {
		def, err := readChunk(r)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		list.Chunks = append(list.Chunks, def)
	}
	if r.Short() {
		return nil, ErrShortPacket
	}
	return list, nil
}

// EncodeChunkList builds an S_CHUNK_LIST payload.
func EncodeChunkList(list *ChunkList) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CHUNK_LIST)
	writePoint(w, list.Center)
	w.WriteH(uint16(len(list.Chunks)))
	for i := range list.Chunks {
		writeChunk(w, &list.Chunks[i])
	}
	return w.Bytes()
}

// EncodeRequestChunkList builds the C_REQUEST_CHUNK_LIST payload.
func EncodeRequestChunkList() []byte {
	return packet.NewWriterWithOpcode(packet.C_OPCODE_REQUEST_CHUNK_LIST).Bytes()
}

func readLen(r *packet.Reader) (int, error) {
	n := int(r.ReadH())
	if r.Short() {
		return 0, ErrShortPacket
	}
	return n, nil
}

func readPoint(r *packet.Reader) coord.Point {
	return coord.Point{X: int(r.ReadD()), Y: int(r.ReadD())}
}

func writePoint(w *packet.Writer, p coord.Point) {
	w.WriteD(int32(p.X))
	w.WriteD(int32(p.Y))
}

func readUnit(r *packet.Reader) UnitDef {
	u := UnitDef{
		ID:        r.ReadS(),
		Name:      r.ReadS(),
		Level:     int(r.ReadH()),
		Model:     r.ReadS(),
		Health:    int(r.ReadD()),
		MaxHealth: int(r.ReadD()),
		Running:   r.ReadBool(),
		Position:  readPoint(r),
	}
	n := int(r.ReadC())
	for i := 0; i < n && !r.Short(); i++ {
		u.MoveQueue = append(u.MoveQueue, readPoint(r))
	}
	u.Target = r.ReadS()
	return u
}

func writeUnit(w *packet.Writer, u *UnitDef) {
	w.WriteS(u.ID)
	w.WriteS(u.Name)
	w.WriteH(uint16(u.Level))
	w.WriteS(u.Model)
	w.WriteD(int32(u.Health))
	w.WriteD(int32(u.MaxHealth))
	w.WriteBool(u.Running)
	writePoint(w, u.Position)
	w.WriteC(byte(len(u.MoveQueue)))
	for _, p := range u.MoveQueue {
		writePoint(w, p)
	}
	w.WriteS(u.Target)
}

func readPlayer(r *packet.Reader) PlayerDef {
	return PlayerDef{
		ID:        r.ReadS(),
		CharID:    int(r.ReadD()),
		Name:      r.ReadS(),
		Level:     int(r.ReadH()),
		Race:      Race(r.ReadC()),
		Model:     r.ReadS(),
		Health:    int(r.ReadD()),
		MaxHealth: int(r.ReadD()),
		Position:  readPoint(r),
	}
}

func writePlayer(w *packet.Writer, p *PlayerDef) {
	w.WriteS(p.ID)
	w.WriteD(int32(p.CharID))
	w.WriteS(p.Name)
	w.WriteH(uint16(p.Level))
	w.WriteC(byte(p.Race))
	w.WriteS(p.Model)
	w.WriteD(int32(p.Health))
	w.WriteD(int32(p.MaxHealth))
	writePoint(w, p.Position)
}

func readGroundItem(r *packet.Reader) GroundItemDef {
	return GroundItemDef{
		ID:       r.ReadS(),
		ItemID:   int(r.ReadD()),
		Name:     r.ReadS(),
		Model:    r.ReadS(),
		Count:    int(r.ReadD()),
		Position: readPoint(r),
	}
}

func writeGroundItem(w *packet.Writer, g *GroundItemDef) {
	w.WriteS(g.ID)
	w.WriteD(int32(g.ItemID))
	w.WriteS(g.Name)
	w.WriteS(g.Model)
	w.WriteD(int32(g.Count))
	writePoint(w, g.Position)
}

func readChunk(r *packet.Reader) (ChunkDef, error) {
	def := ChunkDef{
		ID: int(r.ReadD()),
		X:  int(r.ReadD()),
		Y:  int(r.ReadD()),
	}
	nh := int(r.ReadD())
	if nh < 0 || nh > maxListLen || nh*4 > r.Remaining() {
		return def, fmt.Errorf("heights length %d: %w", nh, ErrShortPacket)
	}
	def.Heights = make([]float64, nh)
	for i := range def.Heights {
		def.Heights[i] = float64(r.ReadF())
	}
	nd, err := readLen(r)
	if err != nil {
		return def, err
	}
	def.Doodads = make([]DoodadDef, 0, nd)
	for i := 0; i < nd && !r.Short(); i++ {
		d := DoodadDef{
			UUID:      r.ReadS(),
			Model:     r.ReadS(),
			X:         int(r.ReadD()),
			Y:         int(r.ReadD()),
			Rotation:  float64(r.ReadF()),
			Scale:     float64(r.ReadF()),
			Elevation: float64(r.ReadF()),
		}
		nb := int(r.ReadH())
		for j := 0; j < nb && !r.Short(); j++ {
			d.Navblocks = append(d.Navblocks, NavblockDef{X: int(r.ReadD()), Y: int(r.ReadD())})
		}
		def.Doodads = append(def.Doodads, d)
	}
	return def, nil
}

func writeChunk(w *packet.Writer, def *ChunkDef) {
	w.WriteD(int32(def.ID))
	w.WriteD(int32(def.X))
	w.WriteD(int32(def.Y))
	w.WriteD(int32(len(def.Heights)))
	for _, h := range def.Heights {
		w.WriteF(float32(h))
	}
	w.WriteH(uint16(len(def.Doodads)))
	for i := range def.Doodads {
		d := &def.Doodads[i]
		w.WriteS(d.UUID)
		w.WriteS(d.Model)
		w.WriteD(int32(d.X))
		w.WriteD(int32(d.Y))
		w.WriteF(float32(d.Rotation))
		w.WriteF(float32(d.Scale))
		w.WriteF(float32(d.Elevation))
		w.WriteH(uint16(len(d.Navblocks)))
		for _, nb := range d.Navblocks {
			w.WriteD(int32(nb.X))
			w.WriteD(int32(nb.Y))
		}
	}
}
