package profile

import (
	"fmt"
	"net/url"
)

// ValidateBaseURL checks that base is a syntactically valid absolute
// URL. Used both for profile.Validate and for validating the
// X-Upstream-Base-URL request header override identically.
func ValidateBaseURL(base string) error {
	if base == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("base_url is not a valid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be absolute (got %q)", base)
	}
	return nil
}
