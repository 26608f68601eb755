package assistant

import "net/url"

// Citation attributes a piece of generated content to a web source.
type Citation struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet,omitempty"`
	Domain        string `json:"domain,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// NewCitation builds a Citation, deriving Domain from the URL's host
// component. An unparseable or host-less URL leaves Domain empty.
func NewCitation(title, rawURL, snippet string) Citation {
	return Citation{
		Title:   title,
		URL:     rawURL,
		Snippet: snippet,
		Domain:  domainOf(rawURL),
	}
}

func domainOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
