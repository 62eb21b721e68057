// Package ticket implements component F: assembling the final htsget JSON
// response from an ordered set of byte ranges and the storage tickets that
// cover them, and the error taxonomy of spec.md §7 shared by every other
// component.
package ticket

import (
	"encoding/json"
	"fmt"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
)

// bamEOF is the 28-byte empty BGZF block used as the BAM/VCF/BCF trailer.
const bamEOF = "data:;base64,H4sIBAAAAAAA/wYAQkMCABsAAwAAAAAAAAAAAA=="

// cramEOF is the 38-byte canonical CRAM v3.0 EOF container, base64-encoded.
const cramEOF = "data:;base64,DwAAAP////8P4EVPRgAAAAABAAW92U8AAQAGBgEAAQABAO5jAUs="

// Class names whether a URL entry is part of a file's header or body.
type Class string

const (
	ClassHeader Class = "header"
	ClassBody   Class = "body"
)

// URL is one entry of a TicketResponse's url list.
type URL struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Class   Class             `json:"class,omitempty"`
}

// Payload is the `htsget` object of the wire response.
type Payload struct {
	Format string `json:"format"`
	URLs   []URL  `json:"urls"`
}

// Response is the full wire response, `{"htsget": {...}}`.
type Response struct {
	Htsget Payload `json:"htsget"`
}

// Encode renders the response pretty-printed with a trailing newline,
// matching the wire contract of spec.md §6.
func (r Response) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TicketMaker produces a fetchable URL and headers for one byte range of a
// resolved object; it is the interface internal/storage backends satisfy.
type TicketMaker interface {
	MakeTicket(resolvedID string, r ourbgzf.ByteRange) (url string, headers map[string]string, err error)
}

// Assemble builds the final Response for format, turning header ranges
// into class="header" URLs, body ranges into class="body" URLs (in
// order), and appending the format's inline EOF trailer last. The C4GH
// re-wrap path does not call Assemble; it builds its own URL entries and
// uses AssembleInline (see internal/resolver).
func Assemble(format genomics.Format, resolvedID string, maker TicketMaker, headerRanges, bodyRanges []ourbgzf.ByteRange) (Response, error) {
	var urls []URL
	for _, r := range headerRanges {
		url, headers, err := maker.MakeTicket(resolvedID, r)
		if err != nil {
			return Response{}, fmt.Errorf("making header ticket: %v", err)
		}
		urls = append(urls, URL{URL: url, Headers: rangeHeaders(headers, r), Class: ClassHeader})
	}
	for _, r := range bodyRanges {
		url, headers, err := maker.MakeTicket(resolvedID, r)
		if err != nil {
			return Response{}, fmt.Errorf("making body ticket: %v", err)
		}
		urls = append(urls, URL{URL: url, Headers: rangeHeaders(headers, r), Class: ClassBody})
	}
	urls = append(urls, URL{URL: eofTrailer(format)})

	return Response{Htsget: Payload{Format: format.String(), URLs: urls}}, nil
}

// AssembleInline builds a Response directly from pre-made URL entries,
// used by the C4GH re-wrap path where the first header URL is already an
// inline rewritten-header data: URL rather than a storage ticket.
func AssembleInline(format genomics.Format, urls []URL) Response {
	urls = append(append([]URL{}, urls...), URL{URL: eofTrailer(format)})
	return Response{Htsget: Payload{Format: format.String(), URLs: urls}}
}

func eofTrailer(format genomics.Format) string {
	if format == genomics.CRAM {
		return cramEOF
	}
	return bamEOF
}

func rangeHeaders(base map[string]string, r ourbgzf.ByteRange) map[string]string {
	headers := make(map[string]string, len(base)+1)
	for k, v := range base {
		headers[k] = v
	}
	headers["Range"] = r.String()
	return headers
}
