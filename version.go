package xrloader

import (
	"fmt"
	"strings"
)

// Version is a semantic API version. Manifest api_version fields carry only
// major.minor; Patch is zero in that case.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// CurrentAPIVersion is the newest API version this loader speaks.
var CurrentAPIVersion = Version{Major: 1, Minor: 0, Patch: 34}

// ParseVersion parses a version string like "1.0.34", "1.0" or "1".
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}

	var v Version
	parts := strings.Split(s, ".")
	if len(parts) < 1 || len(parts) > 3 {
		return Version{}, false
	}

	for i, p := range parts {
		if p == "" {
			return Version{}, false
		}
		var n uint32
		for _, c := range p {
			if c < '0' || c > '9' {
				return Version{}, false
			}
			if n > 429496729 || (n == 429496729 && c > '5') {
				return Version{}, false
			}
			n = n*10 + uint32(c-'0')
		}
		switch i {
		case 0:
			v.Major = n
		case 1:
			v.Minor = n
		case 2:
			v.Patch = n
		}
	}
	return v, true
}

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		if v.Major < other.Major {
			return -1
		}
		return 1
	case v.Minor != other.Minor:
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	case v.Patch != other.Patch:
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// InRange reports whether v falls within [min, max] inclusive.
func (v Version) InRange(min, max Version) bool {
	return v.Compare(min) >= 0 && v.Compare(max) <= 0
}

// String returns "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
