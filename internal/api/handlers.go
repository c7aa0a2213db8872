package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/prompt"
	"github.com/starford/guidesmith/internal/seed"
)

// Enqueuer queues guide requests for the inbox processor.
type Enqueuer interface {
	Enqueue(req guideservice.Request) (string, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc     *guideservice.Service
	catalog *seed.Catalog
	inbox   Enqueuer
}

// NewHandler creates a new Handler.
func NewHandler(svc *guideservice.Service, catalog *seed.Catalog, inbox Enqueuer) *Handler {
	return &Handler{svc: svc, catalog: catalog, inbox: inbox}
}

// ListGuides handles GET /api/guides.
//
//	@Summary	List journaled guides, newest first, or search them with q
//	@Tags		guides
//	@Produce	json
//	@Param		q		query		string	false	"Search title, summary and topic"
//	@Param		limit	query		int		false	"Page size"
//	@Param		offset	query		int		false	"Page offset"
//	@Success	200		{object}	GuideListResponse
//	@Security	BearerAuth
//	@Router		/guides [get]
func (h *Handler) ListGuides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.History(q.Get("q"), limit, offset)
	if err != nil {
		writeError(w, "list guides", err)
		return
	}
	writeJSON(w, http.StatusOK, GuideListResponse{Guides: rows, Total: total})
}

// GetGuide handles GET /api/guides/{id}.
//
//	@Summary	Get a journaled guide by document id
//	@Tags		guides
//	@Produce	json
//	@Param		id	path		string	true	"Document id"
//	@Success	200	{object}	journal.GuideRow
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/guides/{id} [get]
func (h *Handler) GetGuide(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Guide(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get guide", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CreateGuide handles POST /api/guides.
//
//	@Summary	Generate and persist a guide for a topic
//	@Tags		guides
//	@Accept		json
//	@Produce	json
//	@Param		async	query		bool				false	"Queue the request in the inbox instead of waiting"
//	@Param		body	body		CreateGuideRequest	true	"Topic and optional entity hints"
//	@Success	201		{object}	guideservice.Result
//	@Success	202		{object}	EnqueuedResponse
//	@Failure	400		{object}	errResponse
//	@Failure	502		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/guides [post]
func (h *Handler) CreateGuide(w http.ResponseWriter, r *http.Request) {
	var body CreateGuideRequest
	if !decodeBody(w, r, &body) {
		return
	}
	req := guideservice.Request{
		Topic:         body.Topic,
		Places:        body.Places,
		Neighborhoods: body.Neighborhoods,
		Source:        journal.SourceAPI,
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.inbox == nil {
			writeJSON(w, http.StatusNotImplemented, errorBody("inbox is not configured"))
			return
		}
		name, err := h.inbox.Enqueue(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusAccepted, EnqueuedResponse{File: name})
		return
	}

	res, err := h.svc.CreateFromTopic(r.Context(), req)
	if err != nil {
		writeError(w, "create guide", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// SuggestTopics handles POST /api/topics.
//
//	@Summary	Generate topic ideas; nothing is persisted
//	@Tags		topics
//	@Accept		json
//	@Produce	json
//	@Param		body	body		TopicsRequest	true	"Optional filters"
//	@Success	200		{object}	TopicsResponse
//	@Failure	400		{object}	errResponse
//	@Failure	502		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/topics [post]
func (h *Handler) SuggestTopics(w http.ResponseWriter, r *http.Request) {
	var body TopicsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	topics, err := h.svc.TopicIdeas(r.Context(), prompt.TopicFilter{
		Category:     body.Category,
		Neighborhood: body.Neighborhood,
		Count:        body.Count,
	})
	if err != nil {
		writeError(w, "suggest topics", err)
		return
	}
	writeJSON(w, http.StatusOK, TopicsResponse{Topics: topics})
}

// Resolve handles POST /api/resolve.
//
//	@Summary	Resolve place or neighborhood slugs to document references
//	@Tags		references
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ResolveRequest	true	"Kind and slugs"
//	@Success	200		{object}	sanity.Resolution
//	@Failure	400		{object}	errResponse
//	@Failure	502		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var body ResolveRequest
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := h.svc.Resolve(r.Context(), body.Kind, body.Slugs)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Seed handles POST /api/seed.
//
//	@Summary	Write the reference catalog to the document store
//	@Tags		seed
//	@Accept		json
//	@Produce	json
//	@Param		body	body		SeedRequest	false	"Dry run flag"
//	@Success	200		{object}	seed.Report
//	@Failure	502		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/seed [post]
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	var body SeedRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &body) {
		return
	}
	if h.catalog == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("no seed catalog loaded"))
		return
	}
	rep, err := h.svc.Seed(r.Context(), h.catalog, body.DryRun)
	if err != nil {
		writeError(w, "seed", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// SeedRuns handles GET /api/seed/runs.
//
//	@Summary	List recent seed runs
//	@Tags		seed
//	@Produce	json
//	@Param		limit	query		int	false	"Maximum runs"
//	@Success	200		{object}	SeedRunsResponse
//	@Security	BearerAuth
//	@Router		/seed/runs [get]
func (h *Handler) SeedRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.SeedRuns(limit)
	if err != nil {
		writeError(w, "seed runs", err)
		return
	}
	writeJSON(w, http.StatusOK, SeedRunsResponse{Runs: runs})
}
