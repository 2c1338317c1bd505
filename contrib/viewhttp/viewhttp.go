// Package viewhttp exposes website-aware view resolution over HTTP.
//
// The website a request is served for comes from the X-Website-ID header,
// falling back to the website_id query parameter. A request without either
// is served generically.
//
// Routes:
//
//	GET    /health
//	GET    /views/{key}/id       resolve a key to the template the website uses
//	GET    /views/{key}/render   render a key as a frontend page
//	GET    /views/{key}/related  list the templates inheriting from a key
//	PATCH  /views/{id}           write values with copy on write
//	DELETE /views/{id}           delete with copy on unlink
//
// The render route brands its output for editing when the X-Publisher
// header is "1". Its language is the first Accept-Language tag, in the
// en_US form, and defaults to the website language.
package viewhttp

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sitekit/viewscope"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

const (
	HeaderWebsiteID = "X-Website-ID"
	HeaderPublisher = "X-Publisher"
	HeaderLang      = "Accept-Language"
	QueryWebsiteID  = "website_id"
)

// Handler serves the view routes.
type Handler struct {
	views  *viewscope.Views
	log    zerolog.Logger
	router *mux.Router
}

// New returns a Handler serving views.
func New(views *viewscope.Views, log zerolog.Logger) *Handler {
	h := &Handler{views: views, log: log, router: mux.NewRouter()}

	h.router.HandleFunc("/health", h.handleHealth).Methods("GET")
	h.router.HandleFunc("/views/{key}/id", h.handleResolve).Methods("GET")
	h.router.HandleFunc("/views/{key}/render", h.handleRender).Methods("GET")
	h.router.HandleFunc("/views/{key}/related", h.handleRelated).Methods("GET")
	h.router.HandleFunc("/views/{id:[0-9]+}", h.handleWrite).Methods("PATCH")
	h.router.HandleFunc("/views/{id:[0-9]+}", h.handleUnlink).Methods("DELETE")
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Resolution is the body of a resolve response.
type Resolution struct {
	Key       string           `json:"key"`
	WebsiteID models.WebsiteID `json:"website_id"`
	ViewID    models.ViewID    `json:"view_id"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	env, err := envFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := mux.Vars(r)["key"]
	id, err := h.views.ViewID(r.Context(), env, models.KeyRef(key))
	if err != nil {
		h.fail(w, env, err)
		return
	}
	respondJSON(w, http.StatusOK, Resolution{Key: key, WebsiteID: env.WebsiteID, ViewID: id})
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	env, err := envFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	req := &viewscope.Request{
		Frontend:  true,
		Publisher: r.Header.Get(HeaderPublisher) == "1",
	}
	if env.WebsiteID != 0 {
		req.Website, err = h.views.Store().Website(ctx, env.WebsiteID)
		if err != nil {
			h.fail(w, env, err)
			return
		}
	}
	env.Lang = requestLang(r.Header.Get(HeaderLang), req)

	out, err := h.views.Render(ctx, env, req, models.KeyRef(mux.Vars(r)["key"]), nil)
	if err != nil {
		h.fail(w, env, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) handleRelated(w http.ResponseWriter, r *http.Request) {
	env, err := envFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, err := h.views.RelatedViews(r.Context(), env, nil, mux.Vars(r)["key"])
	if err != nil {
		h.fail(w, env, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request) {
	env, err := envFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := models.ParseViewID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid view ID")
		return
	}
	vals, err := decodeValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.views.Write(r.Context(), env, []models.ViewID{id}, vals); err != nil {
		h.fail(w, env, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	env, err := envFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := models.ParseViewID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid view ID")
		return
	}
	if err := h.views.Unlink(r.Context(), env, []models.ViewID{id}); err != nil {
		h.fail(w, env, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps err onto a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, env viewscope.Env, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("request_id", env.RequestID.String()).
			Int64("website_id", int64(env.WebsiteID)).
			Msg("view request failed")
	}
	respondError(w, status, err.Error())
}

func statusOf(err error) int {
	var cerr *store.ConstraintError
	switch {
	case errors.Is(err, viewscope.ErrNotFound), errors.Is(err, store.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewscope.ErrInvalidViewRef),
		errors.Is(err, models.ErrUnknownField),
		errors.Is(err, models.ErrFieldType),
		errors.Is(err, models.ErrReadOnly):
		return http.StatusBadRequest
	case errors.As(err, &cerr), errors.Is(err, viewscope.ErrInheritanceCycle):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// envFromRequest builds the environment of a request.
func envFromRequest(r *http.Request) (viewscope.Env, error) {
	raw := r.Header.Get(HeaderWebsiteID)
	if raw == "" {
		raw = r.URL.Query().Get(QueryWebsiteID)
	}
	websiteID, err := models.ParseWebsiteID(raw)
	if err != nil {
		return viewscope.Env{}, err
	}
	return viewscope.NewEnv(websiteID), nil
}

// decodeValues reads a JSON object of field values. Integral numbers are
// decoded as int64 so that reference fields accept them.
func decodeValues(r *http.Request) (models.Values, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	vals := make(models.Values, len(raw))
	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			vals[k] = v
			continue
		}
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			vals[k] = i
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		vals[k] = f
	}
	return vals, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// requestLang returns the language code of the first tag of an
// Accept-Language header. It falls back to the website language when the
// header is empty or names a language that is not installed.
func requestLang(header string, req *viewscope.Request) string {
	tag, _, _ := strings.Cut(header, ",")
	tag, _, _ = strings.Cut(tag, ";")
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "-", "_")
	if req.Website == nil {
		return tag
	}
	if tag == "" || tag == "*" || (len(req.Languages) > 0 && !slices.Contains(req.Languages, tag)) {
		return req.Website.DefaultLangCode
	}
	return tag
}
