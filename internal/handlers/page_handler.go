package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

// featuredCount is the number of tutors shown on the home page
const featuredCount = 6

// CatalogService is the interface that wraps methods for reading the tutor catalog.
type CatalogService interface {
	// Method ListTutors retrieve one page of tutors matching the filter using the booking API.
	//
	// "filter" parameter carries the search query, subject, rate range, sort order and page.
	// If some error will occur during data retrieve, the error will be returned together with "nil" value.
	ListTutors(ctx context.Context, filter models.TutorFilter) (*models.TutorPage, error)
	// Method GetTutor retrieve a tutor profile by its ID using the booking API.
	//
	// If the tutor does not exist, clients.ErrNotFound will be returned together with "nil" value.
	GetTutor(ctx context.Context, id string) (*models.Tutor, error)
}

// PageHandler handles the public marketing pages
type PageHandler struct {
	BaseHandler
	catalog CatalogService
}

// NewPageHandler creates a new page handler
func NewPageHandler(catalog CatalogService, renderer Renderer, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		BaseHandler: BaseHandler{logger: logger, renderer: renderer},
		catalog:     catalog,
	}
}

// RegisterRoutes registers all public page routes
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get(routes.Home, h.Home)
	r.Get(routes.About, h.About)
	r.Get(routes.HowItWorks, h.HowItWorks)
}

// Home handles GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := views.HomeData{}

	page, err := h.catalog.ListTutors(r.Context(), models.TutorFilter{Sort: models.SortRating, Page: 1})
	if err != nil {
		// the home page renders without the featured list
		h.logger.Warn("failed to load featured tutors", zap.Error(err))
	} else {
		data.Featured = page.Tutors
		if len(data.Featured) > featuredCount {
			data.Featured = data.Featured[:featuredCount]
		}
	}

	h.render(w, r, http.StatusOK, views.PageHome, views.PageData{Data: data})
}

// About handles GET /about
func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PageAbout, views.PageData{Title: "About"})
}

// HowItWorks handles GET /how-it-works
func (h *PageHandler) HowItWorks(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PageHowItWorks, views.PageData{Title: "How it works"})
}

// NotFound renders the 404 page for unknown paths
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}
