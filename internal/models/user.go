package models

// User represents the authenticated account as reported by the auth API
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// UserPatch holds the optional profile fields that may be merged into a User.
// ID and Role are owned by the auth API and cannot be patched.
type UserPatch struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,len=0|url"`
	Bio    *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	Phone  *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// Clone returns a copy of the user, or nil for a nil user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Merge returns a copy of the user with every non-nil patch field applied.
func (u *User) Merge(p UserPatch) *User {
	merged := u.Clone()
	if merged == nil {
		return nil
	}
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Email != nil {
		merged.Email = *p.Email
	}
	if p.Avatar != nil {
		merged.Avatar = *p.Avatar
	}
	if p.Bio != nil {
		merged.Bio = *p.Bio
	}
	if p.Phone != nil {
		merged.Phone = *p.Phone
	}
	return merged
}

// Credentials are the tokens issued by the auth API for one browsing session
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IsZero reports whether no access token is held.
func (c Credentials) IsZero() bool {
	return c.AccessToken == ""
}
