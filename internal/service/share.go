package service

import (
	"net/url"
	"strings"

	"blogcristao/internal/model"
)

// uriComponentReplacer undoes the escapes url.QueryEscape applies to
// characters that browsers leave alone in URI components.
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// PostURL is the public page of a post.
func PostURL(baseURL, postID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/posts/" + url.PathEscape(postID)
}

// ShareLinks builds prefilled share URLs for a post.
func ShareLinks(baseURL, postID, title string) model.ShareResponse {
	postURL := PostURL(baseURL, postID)

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Post"
	}
	text := encodeURIComponent(model.DefaultShareTitle + ": " + title + " - " + postURL)
	encodedURL := encodeURIComponent(postURL)

	return model.ShareResponse{
		PostURL: postURL,
		Links: []model.ShareLink{
			{Network: "whatsapp", URL: "https://api.whatsapp.com/send?text=" + text},
			{Network: "twitter", URL: "https://twitter.com/intent/tweet?text=" + text + "&url=" + encodedURL},
			{Network: "facebook", URL: "https://www.facebook.com/sharer/sharer.php?u=" + encodedURL},
			{Network: "linkedin", URL: "https://www.linkedin.com/sharing/share-offsite/?url=" + encodedURL},
		},
	}
}
