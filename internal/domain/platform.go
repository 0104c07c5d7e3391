package domain

// Platform describes the social platform captions are extracted from
type Platform struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// Platform constants
const (
	PlatformInstagram = "instagram"
)

// Instagram is the platform the caption service targets
var Instagram = Platform{
	ID:     PlatformInstagram,
	Name:   "Instagram",
	Domain: "instagram.com",
}
