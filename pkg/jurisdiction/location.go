package jurisdiction

import (
	"regexp"
	"strings"

	"github.com/agentstation/taxmap/pkg/errors"
)

var (
	// locationPattern matches "CITY NAME, ST" strings from platform exports.
	locationPattern = regexp.MustCompile(`^(.+?),\s*([A-Za-z]{2})$`)

	// jurisdictionPattern matches "Name (Type)" strings from the edits feed,
	// e.g. "Gilbert (City)" or "Hamilton (County)".
	jurisdictionPattern = regexp.MustCompile(`^(.+?)\s*\((\w+)\)$`)

	// jurisdictionSuffix strips trailing qualifier words that some edit rows
	// append to the jurisdiction name.
	jurisdictionSuffix = regexp.MustCompile(`(?i)\s+(Transactions|Tax|Regional|Metropolitan|District).*$`)
)

// SplitLocation extracts a city and 2-letter state code from a
// "CITY, ST" string. Both parts come back trimmed and uppercased.
func SplitLocation(location string) (city, state string, err error) {
	m := locationPattern.FindStringSubmatch(strings.TrimSpace(location))
	if m == nil {
		return "", "", errors.NewValidationError("location", location, "expected \"CITY, ST\" format")
	}

	city = strings.ToUpper(collapseWhitespace(strings.TrimSpace(m[1])))
	state = strings.ToUpper(m[2])
	return city, state, nil
}

// ParseJurisdictionName extracts the locality name and jurisdiction type
// from an edits-feed jurisdiction string. Typical inputs look like
// "Gilbert (City)"; inputs without a parenthesized type yield an empty type
// and have known qualifier suffixes stripped.
func ParseJurisdictionName(jurisdiction string) (name, jtype string) {
	trimmed := strings.TrimSpace(jurisdiction)
	if trimmed == "" {
		return "", ""
	}

	if m := jurisdictionPattern.FindStringSubmatch(trimmed); m != nil {
		return strings.ToUpper(collapseWhitespace(m[1])), m[2]
	}

	name = jurisdictionSuffix.ReplaceAllString(trimmed, "")
	return strings.ToUpper(collapseWhitespace(name)), ""
}
