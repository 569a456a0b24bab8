package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified int    `json:"email_verified"`
	Role          string `json:"role"`
	Ctime         int64  `json:"ctime"`
	Mtime         int64  `json:"mtime"`
}
