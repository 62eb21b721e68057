package ticket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
)

type fakeMaker struct{}

func (fakeMaker) MakeTicket(resolvedID string, r ourbgzf.ByteRange) (string, map[string]string, error) {
	return fmt.Sprintf("https://example.org/%s", resolvedID), nil, nil
}

func TestAssembleOrdersHeaderBodyThenEOF(t *testing.T) {
	header := []ourbgzf.ByteRange{{Start: 0, End: 99}}
	body := []ourbgzf.ByteRange{{Start: 100, End: 199}, {Start: 200, End: 299}}

	resp, err := Assemble(genomics.BAM, "sample.bam", fakeMaker{}, header, body)
	require.NoError(t, err)

	require.Len(t, resp.Htsget.URLs, 4)
	assert.Equal(t, ClassHeader, resp.Htsget.URLs[0].Class)
	assert.Equal(t, "bytes=0-99", resp.Htsget.URLs[0].Headers["Range"])
	assert.Equal(t, ClassBody, resp.Htsget.URLs[1].Class)
	assert.Equal(t, ClassBody, resp.Htsget.URLs[2].Class)
	assert.Equal(t, bamEOF, resp.Htsget.URLs[3].URL)
	assert.Equal(t, "BAM", resp.Htsget.Format)
}

func TestAssembleCRAMUsesCRAMEOF(t *testing.T) {
	resp, err := Assemble(genomics.CRAM, "sample.cram", fakeMaker{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, resp.Htsget.URLs, 1)
	assert.Equal(t, cramEOF, resp.Htsget.URLs[0].URL)
}

func TestEncodeEndsWithNewline(t *testing.T) {
	resp := Response{Htsget: Payload{Format: "BAM"}}
	b, err := resp.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), b[len(b)-1])
}

func TestCodeStatusMapping(t *testing.T) {
	cases := map[Code]int{
		InvalidAuthentication: 401,
		PermissionDenied:      403,
		NotFound:              404,
		UnsupportedFormat:     400,
		InvalidInput:          400,
		InvalidRange:          400,
		InternalError:         500,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.Status(), "code %s", code)
	}
}
