package model

// ProviderBinding links one internal user to one external OAuth identity.
// (provider, provider_account_id) is unique: an external account belongs to
// at most one internal user at a time.
type ProviderBinding struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"provider_account_id"`
	Email             string `json:"email"`
	AccessToken       string `json:"-"`
	RefreshToken      string `json:"-"`
	Ctime             int64  `json:"ctime"`
	Mtime             int64  `json:"mtime"`
}
