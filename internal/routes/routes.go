// Package routes holds the path constants shared by handlers, the route guard and templates
package routes

// Public pages
const (
	Home        = "/"
	About       = "/about"
	HowItWorks  = "/how-it-works"
	Tutors      = "/tutors"
	TutorSearch = "/tutors/search"
	Login       = "/login"
	Register    = "/register"
	Logout      = "/logout"
)

// Student area
const (
	StudentDashboard = "/dashboard"
	StudentBookings  = "/dashboard/bookings"
	StudentProfile   = "/dashboard/profile"
)

// Tutor area
const (
	TutorDashboard = "/tutor/dashboard"
	TutorBookings  = "/tutor/bookings"
)

// Admin area
const (
	AdminDashboard = "/admin"
)

// TutorDetail returns the path of a tutor profile page.
func TutorDetail(id string) string {
	return Tutors + "/" + id
}

// Session channel and JSON API
const (
	SessionSocket = "/ws/session"
	APIPrefix     = "/api/v1"
	Health        = "/healthz"
)
