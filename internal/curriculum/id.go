package curriculum

import (
	"fmt"
	"strings"
)

// ID builds a stable curriculum identifier from a discovery request, e.g.
// "cur_us_ca_mathematics_grade5_v1". A missing region is simply omitted.
func ID(req DiscoveryRequest) string {
	parts := []string{
		"cur",
		strings.ToLower(req.Country),
		strings.ToLower(req.Region),
		strings.ReplaceAll(strings.ToLower(req.Subject), " ", "_"),
		fmt.Sprintf("grade%d", req.Grade),
		"v1",
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_")
}
