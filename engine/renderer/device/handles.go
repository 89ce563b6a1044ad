package device

// An ID packs a slot index (low 20 bits, offset by one) with the slot's generation (high 12
// bits). Removing an object bumps its slot's generation, so IDs held past a release stop
// resolving even after the slot is reused.
const (
	slotBits = 20
	slotMask = 1<<slotBits - 1
	genMask  = 1<<(32-slotBits) - 1
)

// HandleTable is an arena of native objects addressed by small IDs. IDs are never 0 so the zero
// value of every ID type means "no object". Released slots are reused under a new generation.
type HandleTable[T any] struct {
	slots []T
	live  []bool
	gens  []uint32
	free  []uint32
	count int
}

// NewHandleTable creates an empty HandleTable.
//
// Returns:
//   - *HandleTable[T]: the new table
func NewHandleTable[T any]() *HandleTable[T] {
	return &HandleTable[T]{}
}

func packID(idx, gen uint32) uint32 {
	return gen<<slotBits | (idx + 1)
}

// slot returns the index for id if it names a live object of the current generation.
func (h *HandleTable[T]) slot(id uint32) (uint32, bool) {
	n := id & slotMask
	if n == 0 || int(n) > len(h.slots) {
		return 0, false
	}
	idx := n - 1
	if !h.live[idx] || h.gens[idx] != id>>slotBits {
		return 0, false
	}
	return idx, true
}

// Insert stores v and returns its ID.
//
// Parameters:
//   - v: the native object to own
//
// Returns:
//   - uint32: the ID of the stored object, never 0
func (h *HandleTable[T]) Insert(v T) uint32 {
	h.count++
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		h.slots[idx] = v
		h.live[idx] = true
		return packID(idx, h.gens[idx])
	}
	if len(h.slots) == slotMask {
		panic("device: handle table full")
	}
	h.slots = append(h.slots, v)
	h.live = append(h.live, true)
	h.gens = append(h.gens, 0)
	return packID(uint32(len(h.slots)-1), 0)
}

// Get returns the object stored under id.
//
// Parameters:
//   - id: the ID returned by Insert
//
// Returns:
//   - T: the stored object, or the zero value if id is not live
//   - bool: true if id is live
func (h *HandleTable[T]) Get(id uint32) (T, bool) {
	idx, ok := h.slot(id)
	if !ok {
		var zero T
		return zero, false
	}
	return h.slots[idx], true
}

// Remove frees the slot for id and returns the object so the caller can destroy it.
//
// Parameters:
//   - id: the ID returned by Insert
//
// Returns:
//   - T: the removed object, or the zero value if id was not live
//   - bool: true if an object was removed
func (h *HandleTable[T]) Remove(id uint32) (T, bool) {
	var zero T
	idx, ok := h.slot(id)
	if !ok {
		return zero, false
	}
	v := h.slots[idx]
	h.slots[idx] = zero
	h.live[idx] = false
	h.gens[idx] = (h.gens[idx] + 1) & genMask
	h.free = append(h.free, idx)
	h.count--
	return v, true
}

// Len returns the number of live objects.
func (h *HandleTable[T]) Len() int {
	return h.count
}

// Each calls fn for every live object in ID order.
//
// Parameters:
//   - fn: the function called with each ID and object
func (h *HandleTable[T]) Each(fn func(id uint32, v T)) {
	for i, ok := range h.live {
		if ok {
			fn(packID(uint32(i), h.gens[i]), h.slots[i])
		}
	}
}
