package models

// AccessToken is a short-lived platform credential. It is fetched per publish
// call and never cached.
type AccessToken struct {
	Value     string `json:"access_token"`
	ExpiresIn int    `json:"expires_in"`
}

// UploadedMedia is a material stored on the platform. MediaID can be embedded
// in a draft; URL is only meaningful as an image source inside article HTML.
type UploadedMedia struct {
	MediaID string `json:"media_id"`
	URL     string `json:"url"`
}

// DraftResult identifies a created draft.
type DraftResult struct {
	MediaID string `json:"media_id"`
}
