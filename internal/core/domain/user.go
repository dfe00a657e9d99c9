package domain

import "time"

// User is a registered identity. Username and Email are unique across users
// and Roles is never empty once the user has been created.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Roles        []RoleName `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RoleLabels returns the user's roles as plain strings, the form carried in
// session tokens and API responses.
func (u *User) RoleLabels() []string {
	labels := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		labels = append(labels, string(r))
	}
	return labels
}

// Profile is the public view of a user. It never carries password material.
type Profile struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.RoleLabels(),
	}
}
