package postback

import (
	"net/url"
	"strings"

	"github.com/m3rciful/offerbot/models"
)

// tokenParam is the query parameter carrying the click token in
// user-submitted tracking links.
const tokenParam = "clickid"

// ExtractToken pulls the click token out of a user-submitted tracking URL.
// The URL must be absolute and carry a non-empty clickid query parameter.
func ExtractToken(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", models.NewValidationError("url", "empty link")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", models.NewValidationError("url", "%q is not a valid link", rawURL)
	}
	token := strings.TrimSpace(u.Query().Get(tokenParam))
	if token == "" {
		return "", models.NewValidationError("url", "link is missing the %s parameter", tokenParam)
	}
	return token, nil
}

// SubstituteToken produces the concrete call URL for one template.
func SubstituteToken(template, token string) string {
	return strings.ReplaceAll(template, models.TokenPlaceholder, url.QueryEscape(token))
}
