package models

// User is an authenticated portal user, also embedded as an item owner.
type User struct {
	ID             ID     `json:"id"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	GitHubUsername string `json:"github_username,omitempty"`
}

// DisplayName returns the name, then the email, then "Unknown".
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "Unknown"
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return "Unknown"
}

// Verification is the answer of GET /users/verify.
type Verification struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}
