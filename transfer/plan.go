// Package transfer moves large objects as many independently-retried parts
// over a bounded worker pool, and batches of whole objects the same way.
package transfer

// PartStatus tracks one part through its lifecycle. Status is mutated only
// by the worker that owns the part and read by the aggregator after the
// worker reports, so no locking is needed.
type PartStatus int

const (
	PartPending PartStatus = iota
	PartInFlight
	PartDone
	PartFailed
	PartSkipped
)

func (s PartStatus) String() string {
	switch s {
	case PartInFlight:
		return "in_flight"
	case PartDone:
		return "done"
	case PartFailed:
		return "failed"
	case PartSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Part is one contiguous byte-range slice of the transfer.
type Part struct {
	Index  int
	Offset int64
	Length int64
	Status PartStatus
}

// Plan is the owned state of one chunked transfer. Byte ranges are disjoint
// by construction.
type Plan struct {
	TotalSize int64
	PartSize  int64
	Parts     []Part
}

// BuildPlan splits totalSize bytes into ceil(totalSize/partSize) disjoint
// parts. A zero-byte transfer still gets one empty part so the object is
// created on upload.
func BuildPlan(totalSize, partSize int64) *Plan {
	if partSize <= 0 {
		partSize = DefaultPartSize
	}

	p := &Plan{TotalSize: totalSize, PartSize: partSize}
	if totalSize <= 0 {
		p.Parts = []Part{{Index: 0, Offset: 0, Length: 0}}
		return p
	}

	for offset := int64(0); offset < totalSize; offset += partSize {
		length := partSize
		if offset+length > totalSize {
			length = totalSize - offset
		}
		p.Parts = append(p.Parts, Part{
			Index:  len(p.Parts),
			Offset: offset,
			Length: length,
		})
	}
	return p
}
