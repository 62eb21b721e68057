// Package genomics defines the format-agnostic query and interval model
// shared by every htsget ticket-resolution component.
package genomics

import (
	"fmt"
	"strings"
)

// Format names a supported genomic file format.
type Format int

const (
	// UnknownFormat is the zero value and is never valid on a resolved Query.
	UnknownFormat Format = iota
	BAM
	CRAM
	VCF
	BCF
)

func (f Format) String() string {
	switch f {
	case BAM:
		return "BAM"
	case CRAM:
		return "CRAM"
	case VCF:
		return "VCF"
	case BCF:
		return "BCF"
	default:
		return "UNKNOWN"
	}
}

// ParseFormat parses a wire format string, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(s) {
	case "BAM":
		return BAM, nil
	case "CRAM":
		return CRAM, nil
	case "VCF":
		return VCF, nil
	case "BCF":
		return BCF, nil
	default:
		return UnknownFormat, fmt.Errorf("unsupported format %q", s)
	}
}

// IsReadsFormat reports whether f belongs on the /reads endpoint.
func (f Format) IsReadsFormat() bool { return f == BAM || f == CRAM }

// IsVariantsFormat reports whether f belongs on the /variants endpoint.
func (f Format) IsVariantsFormat() bool { return f == VCF || f == BCF }

// Class names which part of the file a Query asks for.
type Class int

const (
	// Body requests header plus all matching records; it is the default
	// when no class is specified.
	Body Class = iota
	// Header requests only the file header and trailer, no records.
	Header
)

func (c Class) String() string {
	if c == Header {
		return "header"
	}
	return "body"
}

// ParseClass parses a wire class string. An empty string means Body.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(s) {
	case "":
		return Body, nil
	case "header":
		return Header, nil
	default:
		return Body, fmt.Errorf("unsupported class %q", s)
	}
}

// Wildcard is the reference name that selects unplaced, unmapped reads.
const Wildcard = "*"

// Interval is a half-open, 0-based range of unencrypted coordinates. A nil
// Start or End means "unbounded on that side".
type Interval struct {
	Start, End *uint32
}

// HasStart reports whether the interval has an explicit lower bound.
func (i Interval) HasStart() bool { return i.Start != nil }

// HasEnd reports whether the interval has an explicit upper bound.
func (i Interval) HasEnd() bool { return i.End != nil }

// StartOr returns the interval's start, or def if unset.
func (i Interval) StartOr(def uint32) uint32 {
	if i.Start == nil {
		return def
	}
	return *i.Start
}

// EndOr returns the interval's end, or def if unset.
func (i Interval) EndOr(def uint32) uint32 {
	if i.End == nil {
		return def
	}
	return *i.End
}

// Region is one requested (referenceName, interval) pair. A POST ticket
// request may carry several, merged after resolution.
type Region struct {
	ReferenceName string
	Interval      Interval
}

// Query describes a single htsget ticket request, after parsing and
// validation but before resolution against any Location or Index.
type Query struct {
	ID     string
	Format Format
	Class  Class

	// Regions is empty for a request with no reference name (the whole
	// mapped+unmapped file) and has exactly one entry for the GET form of
	// the protocol; POST requests may carry several.
	Regions []Region

	// Fields, Tags and NoTags are pass-through only: the resolver does not
	// interpret them, per spec.md's non-goal of per-record filtering, but
	// they are validated and echoed for clients that filter client-side.
	Fields []string
	Tags   []string
	NoTags []string
}

// Validate checks the invariants from spec.md §3: a bounded interval
// requires a concrete reference name, and start must not exceed end.
func (q Query) Validate() error {
	if q.Class == Header {
		return nil
	}
	for _, r := range q.Regions {
		if r.Interval.HasStart() || r.Interval.HasEnd() {
			if r.ReferenceName == "" {
				return fmt.Errorf("interval specified without a reference name")
			}
			if r.ReferenceName == Wildcard {
				return fmt.Errorf("interval specified with wildcard reference name")
			}
		}
		if r.Interval.HasStart() && r.Interval.HasEnd() && *r.Interval.Start > *r.Interval.End {
			return fmt.Errorf("start (%d) is greater than end (%d)", *r.Interval.Start, *r.Interval.End)
		}
	}
	return nil
}
