package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

// subjects offered in the subject filter
var subjects = []string{
	"english", "spanish", "french", "german", "japanese",
	"math", "physics", "chemistry", "biology", "programming", "music",
}

// TutorHandler handles the tutor browser and tutor profiles
type TutorHandler struct {
	BaseHandler
	catalog CatalogService
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(catalog CatalogService, renderer Renderer, logger *zap.Logger) *TutorHandler {
	return &TutorHandler{
		BaseHandler: BaseHandler{logger: logger, renderer: renderer},
		catalog:     catalog,
	}
}

// RegisterRoutes registers all tutor routes
func (h *TutorHandler) RegisterRoutes(r chi.Router) {
	r.Route(routes.Tutors, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/search", h.Search)
		r.Get("/{id}", h.Detail)
	})
}

// List handles GET /tutors
func (h *TutorHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.ParseTutorFilter(r.URL.Query())
	data := views.TutorsData{Filter: filter, Subjects: subjectOptions(filter.Subject)}

	page, err := h.catalog.ListTutors(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list tutors", zap.Error(err))
		data.Error = "Tutors are unavailable right now. Please try again later."
	} else {
		data.Results = page
	}

	h.render(w, r, http.StatusOK, views.PageTutors, views.PageData{Title: "Find a tutor", Data: data})
}

// Search handles POST /tutors/search.
// It normalises the submitted filter form and redirects to the canonical, shareable GET URL.
func (h *TutorHandler) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The search form could not be read.")
		return
	}

	filter := models.ParseTutorFilter(r.PostForm).WithPage(1)
	target := routes.Tutors
	if query := filter.Values().Encode(); query != "" {
		target += "?" + query
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Detail handles GET /tutors/{id}
func (h *TutorHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.renderError(w, r, http.StatusNotFound, "This tutor does not exist.")
		return
	}

	tutor, err := h.catalog.GetTutor(r.Context(), id)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "This tutor does not exist.")
			return
		}
		h.logger.Error("failed to get tutor", zap.String("tutor_id", id), zap.Error(err))
		h.renderError(w, r, http.StatusBadGateway, "Tutor profiles are unavailable right now.")
		return
	}

	h.render(w, r, http.StatusOK, views.PageTutor, views.PageData{Title: tutor.Name, Data: *tutor})
}

// subjectOptions returns the known subjects plus the current one when it is not among them
func subjectOptions(current string) []string {
	options := append([]string(nil), subjects...)
	if current != "" && !slices.Contains(options, current) {
		options = append(options, current)
		slices.Sort(options)
	}
	return options
}
