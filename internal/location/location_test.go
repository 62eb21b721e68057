package location

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
)

func TestResolveFirstMatchWins(t *testing.T) {
	table := Table{
		{Pattern: regexp.MustCompile(`^s3://(?P<id>.*)$`), Substitution: "$id", Backend: S3Backend},
		{Pattern: regexp.MustCompile(`^(?P<id>.*)$`), Substitution: "$id", Backend: FileBackend},
	}

	resolved, ok := table.Resolve("s3://bucket/key", genomics.Query{})
	require.True(t, ok)
	assert.Equal(t, S3Backend, resolved.Location.Backend)
	assert.Equal(t, "bucket/key", resolved.ResolvedID)

	resolved, ok = table.Resolve("plain-id", genomics.Query{})
	require.True(t, ok)
	assert.Equal(t, FileBackend, resolved.Location.Backend)
	assert.Equal(t, "plain-id", resolved.ResolvedID)
}

func TestResolveNoMatchReturnsFalse(t *testing.T) {
	table := Table{{Pattern: regexp.MustCompile(`^s3://.*$`), Substitution: "$0", Backend: S3Backend}}
	_, ok := table.Resolve("file-id", genomics.Query{})
	assert.False(t, ok)
}

func TestResolveGuardRejectsDisallowedFormat(t *testing.T) {
	table := Table{{
		Pattern:      regexp.MustCompile(`^(?P<id>.*)$`),
		Substitution: "$id",
		Backend:      FileBackend,
		Guard:        &Guard{AllowedFormats: map[genomics.Format]bool{genomics.BAM: true}},
	}}
	_, ok := table.Resolve("id", genomics.Query{Format: genomics.VCF})
	assert.False(t, ok)

	resolved, ok := table.Resolve("id", genomics.Query{Format: genomics.BAM})
	require.True(t, ok)
	assert.Equal(t, "id", resolved.ResolvedID)
}

func TestResolveGuardRejectsDisallowedReferenceName(t *testing.T) {
	table := Table{{
		Pattern:      regexp.MustCompile(`^(?P<id>.*)$`),
		Substitution: "$id",
		Backend:      FileBackend,
		Guard:        &Guard{ReferenceNameRe: regexp.MustCompile(`^chr`)},
	}}
	query := genomics.Query{Regions: []genomics.Region{{ReferenceName: "scaffold1"}}}
	_, ok := table.Resolve("id", query)
	assert.False(t, ok)
}
