package model

type Bookmark struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
	Pinned   int    `json:"pinned"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
