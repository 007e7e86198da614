package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tutorhub/frontend/internal/models"
)

// CatalogClient talks to the tutor and booking endpoints of the remote API
type CatalogClient struct {
	baseClient
}

// NewCatalogClient creates a new catalog API client.
// A nil transport uses http.DefaultTransport.
func NewCatalogClient(baseURL string, timeout time.Duration, transport http.RoundTripper) *CatalogClient {
	return &CatalogClient{baseClient: newBaseClient(baseURL, timeout, transport)}
}

// ListTutors returns one page of tutors matching the filter
func (c *CatalogClient) ListTutors(ctx context.Context, filter models.TutorFilter) (*models.TutorPage, error) {
	query := filter.Values()
	query.Set("page", strconv.Itoa(filter.Page))
	query.Set("page_size", strconv.Itoa(models.TutorsPageSize))

	var page models.TutorPage
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/tutors", query: query}, &page); err != nil {
		return nil, err
	}
	if page.Page == 0 {
		page.Page = filter.Page
	}
	if page.PageSize == 0 {
		page.PageSize = models.TutorsPageSize
	}
	if page.Tutors == nil {
		page.Tutors = []models.Tutor{}
	}
	return &page, nil
}

// GetTutor returns a single tutor profile
func (c *CatalogClient) GetTutor(ctx context.Context, id string) (*models.Tutor, error) {
	var tutor models.Tutor
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/tutors/" + url.PathEscape(id)}, &tutor); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// ListBookings returns the bookings of the user owning the credentials
func (c *CatalogClient) ListBookings(ctx context.Context, creds models.Credentials) ([]models.Booking, error) {
	var envelope struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/bookings", token: creds.AccessToken}, &envelope); err != nil {
		return nil, err
	}
	if envelope.Bookings == nil {
		return []models.Booking{}, nil
	}
	return envelope.Bookings, nil
}
