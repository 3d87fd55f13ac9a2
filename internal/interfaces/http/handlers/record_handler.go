package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/search/opensearch"
)

// RecordPage is one page of a record listing. Next is passed back as the
// after parameter to continue.
type RecordPage struct {
	Items []*record.Record `json:"items"`
	Total int64            `json:"total"`
	Next  string           `json:"next,omitempty"`
}

// RecordCount is the body of the count endpoint.
type RecordCount struct {
	Kind  record.Kind `json:"kind"`
	Count int64       `json:"count"`
}

// RecordHandler serves read access to indexed records.
type RecordHandler struct {
	svc indexing.Service
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(svc indexing.Service) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// Get handles GET /v1/:kind/records/:id.
func (h *RecordHandler) Get(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	r, err := h.svc.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

// List handles GET /v1/:kind/records?hash=..&after=..&size=..
// Records are ordered by id; with hash values only records whose structural
// hash holds every given value are listed.
func (h *RecordHandler) List(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	hashes, err := parseHashes(c.QueryArray("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	size, err := parseSize(c.Query("size"))
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := h.svc.Page(c.Request.Context(), kind, hashes, opensearch.ParseCursor(c.Query("after")), size)
	if err != nil {
		respondError(c, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []*record.Record{}
	}
	respond(c, http.StatusOK, RecordPage{
		Items: items,
		Total: page.Total,
		Next:  opensearch.FormatCursor(page.Next),
	})
}

// Count handles GET /v1/:kind/count.
func (h *RecordHandler) Count(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	n, err := h.svc.Count(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, RecordCount{Kind: kind, Count: n})
}

//Personal.AI order the ending
