// url.go — Report-URL identity extraction.
// Report links carry id/sign either in the query string or, for hash-routed
// frontends, inside the fragment's own query.
package ingest

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseIDSign extracts the id/sign identity pair from a report URL. The query
// string wins; the hash fragment's query is the fallback.
func ParseIDSign(reportURL string) (id, sign string, err error) {
	u, err := url.Parse(reportURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing report URL: %w", err)
	}

	qs := u.Query()
	if qs.Get("id") != "" && qs.Get("sign") != "" {
		return qs.Get("id"), qs.Get("sign"), nil
	}

	frag := u.Fragment
	if i := strings.Index(frag, "?"); i >= 0 {
		fqs, err := url.ParseQuery(frag[i+1:])
		if err == nil && fqs.Get("id") != "" && fqs.Get("sign") != "" {
			return fqs.Get("id"), fqs.Get("sign"), nil
		}
	}

	return "", "", fmt.Errorf("missing id/sign in URL")
}
