package model

type File struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	StoreKey    string `json:"store_key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	Ctime       int64  `json:"ctime"`
}
