package model

// DefaultShareTitle prefixes the text of every share link.
const DefaultShareTitle = "Confira este post"

// ShareLink is a prefilled share URL for one social network.
type ShareLink struct {
	Network string `json:"network"`
	URL     string `json:"url"`
}

// ShareResponse lists the share links of a post.
type ShareResponse struct {
	PostURL string      `json:"postUrl"`
	Links   []ShareLink `json:"links"`
}
