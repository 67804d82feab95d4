package wizard

import "net/url"

const (
	TargetRecord  = "record"
	TargetCompose = "compose"
)

// Intent is the navigation request produced by a finished wizard.
// PromptText is nil when the user chose to write their own.
type Intent struct {
	Target            string  `json:"target"`
	PromptText        *string `json:"prompt_text,omitempty"`
	PersonID          string  `json:"person_id"`
	PersonDisplayName string  `json:"person_display_name"`
}

// Query returns the parameter bag of the intent.
func (i Intent) Query() url.Values {
	q := url.Values{}
	q.Set("personId", i.PersonID)
	q.Set("personName", i.PersonDisplayName)
	if i.PromptText != nil && *i.PromptText != "" {
		q.Set("prompt", *i.PromptText)
	}
	return q
}

// URL renders the intent as a host route, e.g. /record?personId=...
func (i Intent) URL() string {
	u := url.URL{Path: "/" + i.Target, RawQuery: i.Query().Encode()}
	return u.String()
}
