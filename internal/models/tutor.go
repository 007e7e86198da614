package models

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// TutorsPageSize is the number of tutors shown per search page
const TutorsPageSize = 12

// TutorSort is the ordering applied to tutor search results
type TutorSort string

// TutorSort constants
const (
	SortRelevance TutorSort = ""
	SortRating    TutorSort = "rating"
	SortPriceAsc  TutorSort = "price_asc"
	SortPriceDesc TutorSort = "price_desc"
)

// Tutor represents a tutor profile listed in the marketplace
type Tutor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Headline     string   `json:"headline"`
	Bio          string   `json:"bio"`
	Avatar       string   `json:"avatar,omitempty"`
	Subjects     []string `json:"subjects"`
	Languages    []string `json:"languages"`
	HourlyRate   float64  `json:"hourly_rate"`
	Rating       float64  `json:"rating"`
	ReviewsCount int      `json:"reviews_count"`
}

// TutorPage is one page of tutor search results
type TutorPage struct {
	Tutors   []Tutor `json:"tutors"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// TotalPages returns the number of pages needed for Total results.
func (p TutorPage) TotalPages() int {
	size := p.PageSize
	if size <= 0 {
		size = TutorsPageSize
	}
	if p.Total <= 0 {
		return 1
	}
	return (p.Total + size - 1) / size
}

// TutorFilter holds the search and filter parameters of the tutor browser.
// The filter round-trips through the URL query so that searches are shareable.
type TutorFilter struct {
	Query   string
	Subject string
	MinRate float64
	MaxRate float64
	Sort    TutorSort
	Page    int
}

// ParseTutorFilter reads a filter from URL query values.
// Malformed numbers are dropped, an inverted rate range is swapped and the page is at least 1.
func ParseTutorFilter(values url.Values) TutorFilter {
	f := TutorFilter{
		Query:   strings.TrimSpace(values.Get("q")),
		Subject: strings.ToLower(strings.TrimSpace(values.Get("subject"))),
		MinRate: parseRate(values.Get("min_rate")),
		MaxRate: parseRate(values.Get("max_rate")),
		Page:    1,
	}

	switch TutorSort(values.Get("sort")) {
	case SortRating:
		f.Sort = SortRating
	case SortPriceAsc:
		f.Sort = SortPriceAsc
	case SortPriceDesc:
		f.Sort = SortPriceDesc
	default:
		f.Sort = SortRelevance
	}

	if f.MinRate > 0 && f.MaxRate > 0 && f.MinRate > f.MaxRate {
		f.MinRate, f.MaxRate = f.MaxRate, f.MinRate
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 1 {
		f.Page = page
	}

	return f
}

// Values encodes the filter as URL query values, omitting defaults.
func (f TutorFilter) Values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Subject != "" {
		v.Set("subject", f.Subject)
	}
	if f.MinRate > 0 {
		v.Set("min_rate", strconv.FormatFloat(f.MinRate, 'f', -1, 64))
	}
	if f.MaxRate > 0 {
		v.Set("max_rate", strconv.FormatFloat(f.MaxRate, 'f', -1, 64))
	}
	if f.Sort != SortRelevance {
		v.Set("sort", string(f.Sort))
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return v
}

// WithPage returns a copy of the filter pointing at another page.
func (f TutorFilter) WithPage(page int) TutorFilter {
	if page < 1 {
		page = 1
	}
	f.Page = page
	return f
}

func parseRate(raw string) float64 {
	rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	return rate
}
