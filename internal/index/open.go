package index

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
)

// Open parses an index of the given format from r, transparently
// gunzipping CSI and TABIX (which are stored BGZF-compressed) and CRAI
// (stored plain-gzip-compressed). BAI is not compressed.
func Open(format genomics.Format, kind Kind, r io.Reader, fileSize uint64) (Index, error) {
	switch kind {
	case BAI:
		return ReadBAI(r)
	case CSI:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("ungzipping CSI: %v", err)
		}
		defer gz.Close()
		return ReadCSI(gz)
	case TABIX:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("ungzipping TABIX: %v", err)
		}
		defer gz.Close()
		return ReadTABIX(gz)
	case CRAI:
		return ReadCRAI(r, fileSize)
	default:
		return nil, fmt.Errorf("unsupported index kind %v", kind)
	}
}

// Kind names an on-disk index file format, independent of the data format
// it indexes (a VCF.gz may use either CSI or TABIX).
type Kind int

const (
	UnknownKind Kind = iota
	BAI
	CSI
	TABIX
	CRAI
)

// Suffix returns the conventional file suffix appended to a data file's
// name to name its index, e.g. "foo.bam" + ".bai".
func (k Kind) Suffix() string {
	switch k {
	case BAI:
		return ".bai"
	case CSI:
		return ".csi"
	case TABIX:
		return ".tbi"
	case CRAI:
		return ".crai"
	default:
		return ""
	}
}

// DefaultKind returns the conventional index kind for a data format.
func DefaultKind(format genomics.Format) Kind {
	switch format {
	case genomics.BAM:
		return BAI
	case genomics.CRAM:
		return CRAI
	case genomics.BCF:
		return CSI
	case genomics.VCF:
		return TABIX
	default:
		return UnknownKind
	}
}
