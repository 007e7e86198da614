// Package views renders the HTML pages of the site
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one per content template
const (
	PageHome             = "home"
	PageAbout            = "about"
	PageHowItWorks       = "how_it_works"
	PageTutors           = "tutors"
	PageTutor            = "tutor"
	PageLogin            = "login"
	PageRegister         = "register"
	PageStudentDashboard = "student_dashboard"
	PageStudentBookings  = "student_bookings"
	PageStudentProfile   = "student_profile"
	PageTutorDashboard   = "tutor_dashboard"
	PageTutorBookings    = "tutor_bookings"
	PageAdminDashboard   = "admin_dashboard"
	PageLoading          = "loading"
	PageError            = "error"
)

var pages = []string{
	PageHome, PageAbout, PageHowItWorks, PageTutors, PageTutor, PageLogin, PageRegister,
	PageStudentDashboard, PageStudentBookings, PageStudentProfile,
	PageTutorDashboard, PageTutorBookings, PageAdminDashboard,
	PageLoading, PageError,
}

// Areas select the layout and the live session channel of a page
const (
	AreaPublic  = "public"
	AreaStudent = "student"
	AreaTutor   = "tutor"
	AreaAdmin   = "admin"
)

// NavLink is one entry of the navigation bar
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// PageData is the data passed to every page template
type PageData struct {
	Title   string
	Area    string
	Path    string
	SiteURL string
	User    *models.User
	Nav     []NavLink
	Flash   string
	// Form holds submitted values to re-fill a form, Errors the per-field messages
	Form   map[string]string
	Errors map[string]string
	Data   any
}

// Renderer renders pages from the embedded template set
type Renderer struct {
	pages   map[string]*template.Template
	siteURL string
	logger  *zap.Logger
}

// NewRenderer parses every page together with the base layout
func NewRenderer(siteURL string, logger *zap.Logger) (*Renderer, error) {
	r := &Renderer{
		pages:   make(map[string]*template.Template, len(pages)),
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger,
	}

	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.pages[page] = tmpl
	}

	return r, nil
}

// Render writes the page with the given status.
// The page is rendered into a buffer first so that a template error never yields a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, page string, data PageData) {
	tmpl, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown page", zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if data.Area == "" {
		data.Area = AreaPublic
	}
	if data.Path == "" {
		data.Path = req.URL.Path
	}
	data.SiteURL = r.siteURL
	if data.Nav == nil {
		data.Nav = NavFor(data.User, data.Path)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		r.logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("failed to write page", zap.String("page", page), zap.Error(err))
	}
}

// Loading returns the neutral placeholder shown while the session check is in flight.
// The page refreshes itself, so the next request sees the settled session.
func (r *Renderer) Loading() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Render(w, req, http.StatusOK, PageLoading, PageData{Title: "Loading", Nav: []NavLink{}})
	})
}

// NavFor builds the navigation links for the user. Anonymous visitors get the public links
// plus login and registration; logged-in users get the links of their own role area.
func NavFor(user *models.User, current string) []NavLink {
	links := []NavLink{
		{Label: "Find a tutor", Href: routes.Tutors},
		{Label: "How it works", Href: routes.HowItWorks},
		{Label: "About", Href: routes.About},
	}

	role := models.RoleUnknown
	if user != nil {
		role = user.Role
	}

	switch role {
	case models.RoleStudent:
		links = append(links,
			NavLink{Label: "Dashboard", Href: routes.StudentDashboard},
			NavLink{Label: "My bookings", Href: routes.StudentBookings},
			NavLink{Label: "Profile", Href: routes.StudentProfile},
		)
	case models.RoleTutor:
		links = append(links,
			NavLink{Label: "Dashboard", Href: routes.TutorDashboard},
			NavLink{Label: "Lessons", Href: routes.TutorBookings},
		)
	case models.RoleAdmin:
		links = append(links, NavLink{Label: "Admin", Href: routes.AdminDashboard})
	default:
		if user == nil {
			links = append(links,
				NavLink{Label: "Log in", Href: routes.Login},
				NavLink{Label: "Sign up", Href: routes.Register},
			)
		}
	}

	for i := range links {
		links[i].Active = links[i].Href == current
	}
	return links
}

var funcs = template.FuncMap{
	"tutorPath": routes.TutorDetail,
	"money": func(amount float64) string {
		return fmt.Sprintf("$%.2f", amount)
	},
	"rating": func(value float64) string {
		return fmt.Sprintf("%.1f", value)
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Mon, 02 Jan 2006 15:04")
	},
	"join": strings.Join,
	"pageURL": func(filter models.TutorFilter, page int) string {
		query := filter.WithPage(page).Values().Encode()
		if query == "" {
			return routes.Tutors
		}
		return routes.Tutors + "?" + query
	},
	"add": func(a, b int) int {
		return a + b
	},
	"routes": func() map[string]string {
		return routeMap
	},
}

var routeMap = map[string]string{
	"Home":             routes.Home,
	"About":            routes.About,
	"HowItWorks":       routes.HowItWorks,
	"Tutors":           routes.Tutors,
	"TutorSearch":      routes.TutorSearch,
	"Login":            routes.Login,
	"Register":         routes.Register,
	"Logout":           routes.Logout,
	"StudentDashboard": routes.StudentDashboard,
	"StudentBookings":  routes.StudentBookings,
	"StudentProfile":   routes.StudentProfile,
	"TutorDashboard":   routes.TutorDashboard,
	"TutorBookings":    routes.TutorBookings,
	"AdminDashboard":   routes.AdminDashboard,
}

// HomeData is the data of the home page
type HomeData struct {
	Featured []models.Tutor
}

// TutorsData is the data of the tutor browser
type TutorsData struct {
	Filter   models.TutorFilter
	Results  *models.TutorPage
	Subjects []string
	Error    string
}

// BookingsData is the data of the dashboards and booking lists
type BookingsData struct {
	Bookings []models.Booking
	Error    string
}

// AdminData is the data of the admin dashboard
type AdminData struct {
	ActiveSessions int
	StartedAt      time.Time
}

// ErrorData is the data of the error page
type ErrorData struct {
	Status  int
	Message string
}
