package models

// LoginRequest represents a login form or JSON body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents a registration form or JSON body.
// Admin accounts are never created through public registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     Role   `json:"role" validate:"required,oneof=STUDENT TUTOR"`
}

// Fields returns the request as the JSON object expected by the auth API.
func (r RegisterRequest) Fields() map[string]any {
	return map[string]any{
		"name":     r.Name,
		"email":    r.Email,
		"password": r.Password,
		"role":     r.Role.String(),
	}
}
