package tilemap

// ChunkSize is the fixed side length of a chunk, in tiles.
const ChunkSize = 32

// Pos is an integer tile-space coordinate.
type Pos struct {
	X, Y int32
}

// Add returns the component-wise sum of p and o.
func (p Pos) Add(o Pos) Pos {
	return Pos{X: p.X + o.X, Y: p.Y + o.Y}
}

// chunkKey identifies a chunk by its chunk-space coordinates.
type chunkKey struct {
	X, Y int32
}

// chunk holds ChunkSize*ChunkSize tiles in row-major order.
type chunk struct {
	tiles [ChunkSize * ChunkSize]Tile
}

// Map is an immutable-from-the-outside, chunked tile grid. Every mutation
// goes through Set, which copy-on-writes the touched chunk and returns a new
// Map sharing every untouched chunk with its parent.
type Map struct {
	chunks map[chunkKey]*chunk
}

// New returns an empty tile map; every position reads as the zero Tile.
func New() *Map {
	return &Map{chunks: make(map[chunkKey]*chunk)}
}

// euclideanDivMod performs floor division so negative coordinates map to
// chunks and sub-chunk indices consistently with their positive neighbors.
func euclideanDivMod(a, b int32) (q, r int32) {
	q = a / b
	r = a % b
	if r < 0 {
		r += b
		q--
	}
	return q, r
}

func locate(pos Pos) (key chunkKey, sx, sy int32) {
	cx, lx := euclideanDivMod(pos.X, ChunkSize)
	cy, ly := euclideanDivMod(pos.Y, ChunkSize)
	return chunkKey{X: cx, Y: cy}, lx, ly
}

// Get returns the tile at pos. Positions in chunks that have never been
// touched by Set read as the zero Tile.
func (m *Map) Get(pos Pos) Tile {
	key, sx, sy := locate(pos)
	c, ok := m.chunks[key]
	if !ok {
		return Tile{}
	}
	return c.tiles[sy*ChunkSize+sx]
}

// Set returns a new Map with tile installed at pos. The chunk containing pos
// is copied before the write; every other chunk pointer is shared verbatim
// with the receiver, so m itself is left untouched.
func (m *Map) Set(pos Pos, tile Tile) *Map {
	key, sx, sy := locate(pos)

	next := &Map{chunks: make(map[chunkKey]*chunk, len(m.chunks)+1)}
	for k, c := range m.chunks {
		next.chunks[k] = c
	}

	var newChunk chunk
	if existing, ok := m.chunks[key]; ok {
		newChunk = *existing
	}
	newChunk.tiles[sy*ChunkSize+sx] = tile
	next.chunks[key] = &newChunk

	return next
}

// Chunks returns the chunk coordinates currently populated, for snapshot
// serialization. The order is not guaranteed; callers that need determinism
// should sort the result.
func (m *Map) Chunks() []Pos {
	out := make([]Pos, 0, len(m.chunks))
	for k := range m.chunks {
		out = append(out, Pos{X: k.X, Y: k.Y})
	}
	return out
}

// ChunkTiles returns a copy of the ChunkSize*ChunkSize tiles for the chunk at
// the given chunk coordinates, in row-major order. Returns the all-zero
// array if the chunk has never been touched.
func (m *Map) ChunkTiles(chunkPos Pos) [ChunkSize * ChunkSize]Tile {
	c, ok := m.chunks[chunkKey{X: chunkPos.X, Y: chunkPos.Y}]
	if !ok {
		return [ChunkSize * ChunkSize]Tile{}
	}
	return c.tiles
}

// PutChunk installs a full chunk's tiles at chunkPos, used when
// reconstructing a Map from a wire snapshot. It does not copy-on-write
// relative to any parent; it is meant for building a fresh Map only.
func (m *Map) PutChunk(chunkPos Pos, tiles [ChunkSize * ChunkSize]Tile) {
	c := chunk{tiles: tiles}
	m.chunks[chunkKey{X: chunkPos.X, Y: chunkPos.Y}] = &c
}
