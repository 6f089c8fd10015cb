package greythr

import "strings"

// Domain derives the GreytHR tenant domain from a company name: lowercase,
// spaces and hyphens stripped, suffixed with ".greythr.com".
func Domain(companyName string) string {
	d := strings.ToLower(companyName)
	d = strings.ReplaceAll(d, " ", "")
	d = strings.ReplaceAll(d, "-", "")
	return d + ".greythr.com"
}
