package query

import "fmt"

// ProfilePathMarker restricts search results to profile pages. Every
// identifier the pipeline discovers must carry this path segment.
const ProfilePathMarker = "linkedin.com/in"

// EmailHint biases the search engine toward profiles that expose a
// contact address somewhere in the page text.
const EmailHint = "@gmail.com"

// Build renders the base search query for a role/country pair. Role and
// country are quoted literally; pagination is applied by the caller via
// the engine's offset parameter, not here.
func Build(role, country string) string {
	return fmt.Sprintf(`site:%s %q %q %q`, ProfilePathMarker, role, EmailHint, country)
}
