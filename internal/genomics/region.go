package genomics

import "fmt"

// AllReferences matches a ResolvedRegion against every reference in the
// file, used for a query with no reference name (the whole mapped set).
const AllReferences = -1

// ResolvedRegion is a Region after its reference name has been resolved
// against a file's own reference table or index, ready to hand to
// internal/index.Index.Chunks.
type ResolvedRegion struct {
	// ReferenceID is the index's internal reference number, or
	// AllReferences to match every mapped reference.
	ReferenceID int32
	// Start and End give the half-open interval in base pairs relative to
	// the reference. End of zero means unbounded.
	Start, End uint32
}

func (r ResolvedRegion) String() string {
	return fmt.Sprintf("[region:%d, start:%d, end:%d]", r.ReferenceID, r.Start, r.End)
}
