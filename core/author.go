package core

// Author is the public summary of the user behind a thread, reply, material or submission.
type Author struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	AvatarURL string `json:"avatar_url" db:"avatar_url"`
}
