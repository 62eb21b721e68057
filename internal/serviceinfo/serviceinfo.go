// Package serviceinfo builds the static htsget capability descriptor
// returned from GET /reads/service-info and GET /variants/service-info
// (spec.md §4.H).
package serviceinfo

import "github.com/ga4gh/htsget-ticket-server/internal/genomics"

// Datatype names the endpoint family a service-info document describes.
type Datatype string

const (
	Reads    Datatype = "reads"
	Variants Datatype = "variants"
)

// Extras carries operator-supplied fields merged verbatim into the top
// level of the service-info document (SPEC_FULL.md §4.I `serviceInfo`
// config block), e.g. `id`, `name`, `contactUrl`, `organization`.
type Extras map[string]interface{}

// htsgetInfo is the nested `htsget` object every service-info document
// carries, regardless of operator extras.
type htsgetInfo struct {
	Datatype                  Datatype `json:"datatype"`
	Formats                   []string `json:"formats"`
	FieldsParametersEffective bool     `json:"fieldsParametersEffective"`
	TagsParametersEffective   bool     `json:"tagsParametersEffective"`
}

// Document is the full service-info JSON response.
type Document map[string]interface{}

// readsFormats and variantsFormats are fixed: this server never adds a
// format to one endpoint family without the other, so a generated
// document cannot drift from the resolver's actual Format enum.
var (
	readsFormats    = []string{genomics.BAM.String(), genomics.CRAM.String()}
	variantsFormats = []string{genomics.VCF.String(), genomics.BCF.String()}
)

// Build produces the service-info document for datatype, merging extras
// on top of the fixed `htsget` capability object. Fields and tags
// parameters are never honored server-side (spec.md's non-goal of
// per-record filtering), so both effective flags are always false.
func Build(datatype Datatype, extras Extras) Document {
	formats := readsFormats
	if datatype == Variants {
		formats = variantsFormats
	}

	doc := Document{
		"htsget": htsgetInfo{
			Datatype:                  datatype,
			Formats:                   formats,
			FieldsParametersEffective: false,
			TagsParametersEffective:   false,
		},
	}
	for k, v := range extras {
		doc[k] = v
	}
	return doc
}
