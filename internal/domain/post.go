package domain

// PostType is how a blog post renders.
type PostType string

const (
	PostTypeText     PostType = "text"
	PostTypePhoto    PostType = "photo"
	PostTypePhotoset PostType = "photoset"
)

// Post is the simplified blog post shape served to the front end.
type Post struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Type     PostType `json:"type"`
	Category string   `json:"category"`
	Body     string   `json:"body"`
	Images   []string `json:"images"`
	Image    *string  `json:"image"`
}
