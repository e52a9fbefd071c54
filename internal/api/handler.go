// Package api exposes the correlator over HTTP: accepting documents and
// queries, looking them up, one-shot search, related terms, stats and a
// WebSocket stream of matches.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/ingest"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/logger"
)

const maxBodyBytes = 2 << 20

type Handler struct {
	corr   *correlator.Correlator
	logger *slog.Logger
}

func NewHandler(c *correlator.Correlator) *Handler {
	return &Handler{
		corr:   c,
		logger: slog.Default().With("component", "api"),
	}
}

type acceptResponse struct {
	ID            uint32 `json:"id"`
	Status        string `json:"status"`
	DeliveryError string `json:"delivery_error,omitempty"`
}

type itemView struct {
	ID    uint32   `json:"id"`
	Type  string   `json:"type,omitempty"`
	Raw   string   `json:"raw"`
	Terms []string `json:"terms"`
}

// AcceptDocument handles POST /api/v1/documents.
func (h *Handler) AcceptDocument(w http.ResponseWriter, r *http.Request) {
	var rec ingest.DocumentRecord
	if !h.decode(w, r, &rec) {
		return
	}
	if err := ingest.ValidateDocument(rec); err != nil {
		h.writeValidation(w, err)
		return
	}
	id, err := h.corr.AcceptDocument(r.Context(), rec.Raw)
	h.writeAccepted(w, r, "document", id, err)
}

// AcceptQuery handles POST /api/v1/queries.
func (h *Handler) AcceptQuery(w http.ResponseWriter, r *http.Request) {
	var rec ingest.QueryRecord
	if !h.decode(w, r, &rec) {
		return
	}
	if err := ingest.ValidateQuery(rec); err != nil {
		h.writeValidation(w, err)
		return
	}
	parsed, err := rec.Resolve(h.corr.Tokenizer())
	if err != nil {
		h.writeValidation(w, err)
		return
	}
	id, err := h.corr.AcceptParsedQuery(r.Context(), parsed)
	h.writeAccepted(w, r, "query", id, err)
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.corr.Document(id)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, itemView{ID: doc.ID, Raw: doc.Raw, Terms: doc.Terms.Sorted()})
}

// GetQuery handles GET /api/v1/queries/{id}.
func (h *Handler) GetQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	q, err := h.corr.Query(id)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, itemView{ID: q.ID, Type: q.Type, Raw: q.Raw, Terms: q.Terms.Sorted()})
}

// Search handles GET /api/v1/search?terms=a,b. Documents containing every
// term are returned in id order; no query is registered.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	terms := termsParam(r, h.corr.Tokenizer())
	docs := h.corr.Search(terms)
	results := make([]itemView, 0, len(docs))
	for _, d := range docs {
		results = append(results, itemView{ID: d.ID, Raw: d.Raw, Terms: d.Terms.Sorted()})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"terms":   terms.Sorted(),
		"total":   len(results),
		"results": results,
	})
}

// Related handles GET /api/v1/related?terms=a,b.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	terms := termsParam(r, h.corr.Tokenizer())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"terms":   terms.Sorted(),
		"related": h.corr.RelatedTerms(terms).Sorted(),
	})
}

// Terms handles GET /api/v1/terms.
func (h *Handler) Terms(w http.ResponseWriter, r *http.Request) {
	terms := h.corr.Vocabulary()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total": len(terms),
		"terms": terms,
	})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.corr.Stats())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be an unsigned integer")
		return 0, false
	}
	return uint32(id), true
}

// termsParam reads comma-separated terms and tokenizes each one the way
// documents are tokenized. Repeated parameters are merged.
func termsParam(r *http.Request, tk tokenizer.Tokenizer) tokenizer.TermSet {
	terms := tokenizer.NewTermSet()
	for _, v := range r.URL.Query()["terms"] {
		for _, t := range strings.Split(v, ",") {
			for tok := range tk.Tokenize(t) {
				terms.Add(tok)
			}
		}
	}
	return terms
}

func (h *Handler) writeAccepted(w http.ResponseWriter, r *http.Request, kind string, id uint32, deliveryErr error) {
	log := logger.FromContext(r.Context())
	resp := acceptResponse{ID: id, Status: "accepted"}
	if deliveryErr != nil {
		log.Warn(kind+" accepted with delivery errors", "id", id, "error", deliveryErr)
		resp.DeliveryError = deliveryErr.Error()
	} else {
		log.Debug(kind+" accepted", "id", id)
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
