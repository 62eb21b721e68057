package serviceinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReadsListsBAMAndCRAM(t *testing.T) {
	doc := Build(Reads, nil)
	info := doc["htsget"].(htsgetInfo)
	assert.Equal(t, Reads, info.Datatype)
	assert.ElementsMatch(t, []string{"BAM", "CRAM"}, info.Formats)
	assert.False(t, info.FieldsParametersEffective)
	assert.False(t, info.TagsParametersEffective)
}

func TestBuildVariantsListsVCFAndBCF(t *testing.T) {
	doc := Build(Variants, nil)
	info := doc["htsget"].(htsgetInfo)
	assert.ElementsMatch(t, []string{"VCF", "BCF"}, info.Formats)
}

func TestBuildMergesOperatorExtras(t *testing.T) {
	doc := Build(Reads, Extras{"id": "org.example.htsget", "contactUrl": "mailto:ops@example.org"})
	assert.Equal(t, "org.example.htsget", doc["id"])
	assert.Equal(t, "mailto:ops@example.org", doc["contactUrl"])
	assert.Contains(t, doc, "htsget")
}

func TestBuildExtrasOverwriteHtsgetKey(t *testing.T) {
	doc := Build(Reads, Extras{"htsget": "tampered"})
	// operator extras are merged on top, so a conflicting key does
	// overwrite; document that this is last-write-wins rather than
	// silently dropping the extra.
	assert.Equal(t, "tampered", doc["htsget"])
}
