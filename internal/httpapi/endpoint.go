package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ga4gh/htsget-ticket-server/internal/analytics"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

type endpointKind int

const (
	readsEndpoint endpointKind = iota
	variantsEndpoint
)

func (e endpointKind) defaultFormat() genomics.Format {
	if e == variantsEndpoint {
		return genomics.VCF
	}
	return genomics.BAM
}

func (e endpointKind) validFormat(f genomics.Format) bool {
	if e == variantsEndpoint {
		return f.IsVariantsFormat()
	}
	return f.IsReadsFormat()
}

// handleGet serves the GET /{reads,variants}/{id...} form: a single
// optional region taken straight from query parameters.
func (s *Server) handleGet(kind endpointKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		query, err := parseGetQuery(kind, c)
		if err != nil {
			if _, ok := ticket.AsError(err); !ok {
				err = ticket.NewInvalidInput("parsing query parameters", err)
			}
			s.finish(c, ticket.Response{}, err)
			return
		}
		s.resolveAndRespond(c, query)
	}
}

// postBody is the JSON shape accepted by POST /{reads,variants}/{id...}.
type postBody struct {
	Format  string       `json:"format"`
	Class   string       `json:"class"`
	Fields  []string     `json:"fields"`
	Tags    []string     `json:"tags"`
	NoTags  []string     `json:"notags"`
	Regions []postRegion `json:"regions"`
}

type postRegion struct {
	ReferenceName string  `json:"referenceName"`
	Start         *uint32 `json:"start"`
	End           *uint32 `json:"end"`
}

func (s *Server) handlePost(kind endpointKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body postBody
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
			s.finish(c, ticket.Response{}, ticket.NewInvalidInput("parsing request body", err))
			return
		}

		query, err := buildQuery(kind, pathID(c), body.Format, body.Class, body.Fields, body.Tags, body.NoTags, body.Regions)
		if err != nil {
			if _, ok := ticket.AsError(err); !ok {
				err = ticket.NewInvalidInput("building query", err)
			}
			s.finish(c, ticket.Response{}, err)
			return
		}
		s.resolveAndRespond(c, query)
	}
}

func (s *Server) resolveAndRespond(c *gin.Context, query genomics.Query) {
	ctx := analytics.WithBuffer(c.Request.Context())
	response, err := s.Resolver.Resolve(ctx, query)

	urlCount := len(response.Htsget.URLs)
	analytics.TrackFromContext(ctx, analytics.Event("ticket", query.Format.String(), errorClass(err), int64Ptr(int64(urlCount))))
	_ = analytics.Flush(ctx, s.Tracker)

	s.finish(c, response, err)
}

func (s *Server) finish(c *gin.Context, response ticket.Response, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	body, encErr := response.Encode()
	if encErr != nil {
		writeError(c, ticket.NewInternalError("encoding response", encErr))
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// errorResponse is the wire shape of spec.md §6's error JSON.
type errorResponse struct {
	Htsget struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"htsget"`
}

func writeError(c *gin.Context, err error) {
	te, ok := ticket.AsError(err)
	if !ok {
		te = ticket.NewInternalError("unexpected error", err)
	}
	var resp errorResponse
	resp.Htsget.Error = string(te.Code)
	resp.Htsget.Message = te.Error()
	c.JSON(te.Code.Status(), resp)
}

func ticketNotFoundErr(context string) error {
	return ticket.NewNotFound(context, nil)
}

func errorClass(err error) string {
	if err == nil {
		return ""
	}
	if te, ok := ticket.AsError(err); ok {
		return string(te.Code)
	}
	return "unknown"
}

func int64Ptr(v int64) *int64 { return &v }

func pathID(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("id"), "/")
}

func parseGetQuery(kind endpointKind, c *gin.Context) (genomics.Query, error) {
	var regions []postRegion
	referenceName := c.Query("referenceName")
	if referenceName != "" || c.Query("start") != "" || c.Query("end") != "" {
		region := postRegion{ReferenceName: referenceName}
		if v := c.Query("start"); v != "" {
			n, err := parseUint32(v)
			if err != nil {
				return genomics.Query{}, err
			}
			region.Start = &n
		}
		if v := c.Query("end"); v != "" {
			n, err := parseUint32(v)
			if err != nil {
				return genomics.Query{}, err
			}
			region.End = &n
		}
		regions = append(regions, region)
	}

	return buildQuery(kind, pathID(c), c.Query("format"), c.Query("class"),
		splitCSV(c.Query("fields")), splitCSV(c.Query("tags")), splitCSV(c.Query("notags")), regions)
}

func buildQuery(kind endpointKind, id, formatParam, classParam string, fields, tags, notags []string, regions []postRegion) (genomics.Query, error) {
	format := kind.defaultFormat()
	if formatParam != "" {
		var err error
		format, err = genomics.ParseFormat(formatParam)
		if err != nil {
			return genomics.Query{}, err
		}
	}
	if !kind.validFormat(format) {
		return genomics.Query{}, ticket.NewUnsupportedFormat("format not valid for this endpoint", nil)
	}

	class, err := genomics.ParseClass(classParam)
	if err != nil {
		return genomics.Query{}, err
	}

	query := genomics.Query{
		ID:     id,
		Format: format,
		Class:  class,
		Fields: fields,
		Tags:   tags,
		NoTags: notags,
	}
	for _, r := range regions {
		query.Regions = append(query.Regions, genomics.Region{
			ReferenceName: r.ReferenceName,
			Interval:      genomics.Interval{Start: r.Start, End: r.End},
		})
	}

	if err := query.Validate(); err != nil {
		return genomics.Query{}, err
	}
	return query, nil
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
