package telemetry

import "net/url"

// redactUrl strips the query and fragment of a url, upstream query strings carry signing
// hashes.
func redactUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.User = nil
	return parsed.String()
}
