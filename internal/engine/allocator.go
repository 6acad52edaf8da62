package engine

import "github.com/piwi3910/barcut/internal/model"

// bin is one stock unit or one new bar being filled.
type bin struct {
	unit      *model.StockUnit // nil for a new bar
	capacity  int
	remaining int
	pieces    []model.PieceDemand
}

func newBin(unit *model.StockUnit, capacity int) *bin {
	return &bin{unit: unit, capacity: capacity, remaining: capacity}
}

// fits reports whether a piece fits the remaining capacity.
func (b *bin) fits(length int) bool {
	return length <= b.remaining
}

// place assigns p and charges one cut. A leftover shorter than the kerf is
// lost to the saw, so the charge never exceeds what remains.
func (b *bin) place(p model.PieceDemand, cutLoss int) {
	b.pieces = append(b.pieces, p)
	b.remaining -= p.Length + min(cutLoss, b.remaining-p.Length)
}

func (b *bin) used() int {
	return b.capacity - b.remaining
}

func (b *bin) pieceLength() int {
	total := 0
	for _, p := range b.pieces {
		total += p.Length
	}
	return total
}

// allocation is the raw output of one packing pass.
type allocation struct {
	existing    []*bin // used candidates, in candidate order
	newBars     []*bin // in the order they were opened
	unallocated []model.PieceDemand
}

// allocate packs pieces (longest first) with first-fit-decreasing: existing
// candidates in order, then open new bars in order, then a fresh bar of
// standardLength. A piece fitting none of these is left unallocated.
func allocate(pieces []model.PieceDemand, candidates []model.StockUnit, standardLength, cutLoss int) allocation {
	existing := make([]*bin, len(candidates))
	for i := range candidates {
		existing[i] = newBin(&candidates[i], candidates[i].Length)
	}

	var out allocation
	for _, p := range pieces {
		if placed := firstFit(existing, p, cutLoss); placed {
			continue
		}
		if placed := firstFit(out.newBars, p, cutLoss); placed {
			continue
		}
		if standardLength > 0 && p.Length <= standardLength {
			b := newBin(nil, standardLength)
			b.place(p, cutLoss)
			out.newBars = append(out.newBars, b)
			continue
		}
		out.unallocated = append(out.unallocated, p)
	}

	for _, b := range existing {
		if len(b.pieces) > 0 {
			out.existing = append(out.existing, b)
		}
	}
	return out
}

func firstFit(bins []*bin, p model.PieceDemand, cutLoss int) bool {
	for _, b := range bins {
		if b.fits(p.Length) {
			b.place(p, cutLoss)
			return true
		}
	}
	return false
}
