package domain

// ExtractionRequest is a single caption lookup. NormalizedURL is RawURL
// without its query string and fragment.
type ExtractionRequest struct {
	RawURL        string `json:"raw_url"`
	NormalizedURL string `json:"normalized_url"`
}

// CaptionResult is the payload returned to callers of the resolver.
// An empty Caption means nothing was found.
type CaptionResult struct {
	Caption string `json:"caption"`
}

// Found reports whether the result carries a caption
func (r CaptionResult) Found() bool {
	return r.Caption != ""
}

// CaptionJobPayload is the queue payload for JobTypeExtractCaption
type CaptionJobPayload struct {
	URL       string `json:"url"`
	ChannelID string `json:"channel_id,omitempty"`
}
