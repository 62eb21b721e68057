// Package location implements component D: matching a requested id against
// an ordered list of configured locations to obtain a concrete backend
// reference, with an optional allow-guard restricting which queries a
// location will serve.
package location

import (
	"regexp"

	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
)

// BackendKind names which storage adapter a Location resolves to.
type BackendKind int

const (
	UnknownBackend BackendKind = iota
	FileBackend
	S3Backend
	URLBackend
	GCSBackend
)

// ObjectKind names whether a resolved object is plaintext or a Crypt4GH
// encrypted container needing the re-wrap step of component G.
type ObjectKind int

const (
	Regular ObjectKind = iota
	Crypt4GH
)

// Guard optionally restricts which queries a Location will serve. A nil
// field in Guard means "no restriction on this axis".
type Guard struct {
	AllowedFormats    map[genomics.Format]bool
	AllowedClasses    map[genomics.Class]bool
	ReferenceNameRe   *regexp.Regexp
	AllowedFields     map[string]bool
	AllowedTags       map[string]bool
}

// Allows reports whether g permits query. A zero-value Guard permits
// everything.
func (g *Guard) Allows(query genomics.Query) bool {
	if g == nil {
		return true
	}
	if g.AllowedFormats != nil && !g.AllowedFormats[query.Format] {
		return false
	}
	if g.AllowedClasses != nil && !g.AllowedClasses[query.Class] {
		return false
	}
	if g.ReferenceNameRe != nil {
		for _, r := range query.Regions {
			if r.ReferenceName != "" && !g.ReferenceNameRe.MatchString(r.ReferenceName) {
				return false
			}
		}
	}
	if g.AllowedFields != nil {
		for _, f := range query.Fields {
			if !g.AllowedFields[f] {
				return false
			}
		}
	}
	if g.AllowedTags != nil {
		for _, t := range query.Tags {
			if !g.AllowedTags[t] {
				return false
			}
		}
	}
	return true
}

// Location is one entry of the configured, ordered location table.
type Location struct {
	Pattern      *regexp.Regexp
	Substitution string
	Backend      BackendKind
	ObjectKind   ObjectKind
	Guard        *Guard

	// BackendRef is opaque to this package: it is the concrete backend
	// configuration (file root, S3 bucket, URL base, ...) that
	// internal/storage uses to build a Storage once a Location matches.
	BackendRef interface{}

	// C4GHKeys is set only when ObjectKind is Crypt4GH.
	C4GHKeys interface{}
}

// Resolved is the outcome of a successful Resolve: the matched Location
// plus the backend-specific id produced by substituting the id's capture
// groups into the Location's Substitution template.
type Resolved struct {
	Location   *Location
	ResolvedID string
}

// Table is the ordered list of configured locations, shared read-only
// across concurrent resolutions for the life of the process.
type Table []*Location

// Resolve iterates t in declaration order, returning the first Location
// whose pattern matches id and whose guard (if any) allows query. It
// returns ok=false if no location matches, which the caller surfaces as
// NotFound per spec.md §4.D.
func (t Table) Resolve(id string, query genomics.Query) (Resolved, bool) {
	for _, loc := range t {
		match := loc.Pattern.FindStringSubmatchIndex(id)
		if match == nil {
			continue
		}
		if !loc.Guard.Allows(query) {
			continue
		}
		resolvedID := string(loc.Pattern.ExpandString(nil, loc.Substitution, id, match))
		return Resolved{Location: loc, ResolvedID: resolvedID}, true
	}
	return Resolved{}, false
}
