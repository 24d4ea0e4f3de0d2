// Package device turns raw User-Agent strings into short human-readable
// descriptions. Audit entries carry the description so reviewers can see
// what kind of client performed an action without storing the full UA.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Unknown is recorded when the client sent no usable User-Agent.
const Unknown = "Unknown Device"

// Describe parses a User-Agent header into "<browser> on <platform> <os>".
func Describe(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return Unknown
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()

	var parts []string
	if browser != "" {
		parts = append(parts, browser)
	}

	location := strings.TrimSpace(strings.Join(strings.Fields(ua.Platform()+" "+ua.OSInfo().Name), " "))
	if location != "" {
		if len(parts) > 0 {
			parts = append(parts, "on")
		}
		parts = append(parts, location)
	}

	if len(parts) == 0 {
		return Unknown
	}
	return strings.Join(parts, " ")
}
