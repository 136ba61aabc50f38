package condition

import (
	"errors"
	"strconv"
	"strings"
)

// errInvalidVersion marks a version string this comparison cannot parse. It is
// recovered as Unknown by the semver matchers, never surfaced to callers.
var errInvalidVersion = errors.New("invalid semantic version")

// compareVersion compares a version against a targeted version up to the
// precision of the target: "2.1" targets every "2.1.x". The algorithm is the
// one shared by all clients of the experimentation service, including its
// pre-release ("-") and build ("+") ordering quirks; it must not be replaced
// with a generic semver library.
func compareVersion(version, target string) (int, error) {
	targetParts, err := splitVersion(target)
	if err != nil {
		return 0, err
	}
	versionParts, err := splitVersion(version)
	if err != nil {
		return 0, err
	}

	versionPre := isPreRelease(version)
	targetPre := isPreRelease(target)

	for i, targetPart := range targetParts {
		if len(versionParts) <= i {
			if targetPre {
				return 1, nil
			}
			return -1, nil
		}
		part := versionParts[i]

		if !isNumeric(part) {
			// Suffix parts (pre-release/build tags) compare as strings, with
			// pre-release ordering below the corresponding release.
			if part < targetPart {
				if targetPre && !versionPre {
					return 1, nil
				}
				return -1, nil
			}
			if part > targetPart {
				if !targetPre && versionPre {
					return -1, nil
				}
				return 1, nil
			}
			continue
		}

		partNum, err1 := strconv.Atoi(part)
		targetNum, err2 := strconv.Atoi(targetPart)
		if err1 != nil || err2 != nil {
			return -1, nil
		}
		if partNum < targetNum {
			return -1, nil
		}
		if partNum > targetNum {
			return 1, nil
		}
	}

	if versionPre && !targetPre {
		return -1, nil
	}
	return 0, nil
}

// splitVersion breaks a version string into its dotted numeric parts plus an
// optional pre-release or build suffix kept as a single trailing part.
func splitVersion(v string) ([]string, error) {
	if strings.ContainsAny(v, " \t") {
		return nil, errInvalidVersion
	}

	prefix := v
	var suffix string
	hasSuffix := false

	switch {
	case isPreRelease(v):
		prefix, suffix, hasSuffix = strings.Cut(v, "-")
	case isBuild(v):
		prefix, suffix, hasSuffix = strings.Cut(v, "+")
	}
	if hasSuffix && suffix == "" {
		return nil, errInvalidVersion
	}

	dotCount := strings.Count(prefix, ".")
	if dotCount > 2 {
		return nil, errInvalidVersion
	}

	parts := strings.Split(prefix, ".")
	if len(parts) != dotCount+1 {
		return nil, errInvalidVersion
	}
	for _, part := range parts {
		if !isNumeric(part) {
			return nil, errInvalidVersion
		}
	}

	if hasSuffix {
		parts = append(parts, suffix)
	}
	return parts, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isPreRelease reports whether the first "-" occurs before any "+".
func isPreRelease(v string) bool {
	dash := strings.IndexByte(v, '-')
	if dash < 0 {
		return false
	}
	plus := strings.IndexByte(v, '+')
	return plus < 0 || dash < plus
}

// isBuild reports whether the first "+" occurs before any "-".
func isBuild(v string) bool {
	plus := strings.IndexByte(v, '+')
	if plus < 0 {
		return false
	}
	dash := strings.IndexByte(v, '-')
	return dash < 0 || plus < dash
}
