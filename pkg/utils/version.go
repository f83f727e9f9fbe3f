package utils

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion parses a runtime version string. Runtime packages often carry
// more than three numeric components or a platform suffix
// (e.g. "1.41.232620097.arm64"); those are reduced to major.minor.patch.
func ParseVersion(v string) (*semver.Version, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("empty version")
	}
	if parsed, err := semver.NewVersion(v); err == nil {
		return parsed, nil
	}

	core := strings.TrimPrefix(v, "v")
	parts := strings.Split(core, ".")
	nums := make([]string, 0, 3)
	for _, p := range parts {
		if len(nums) == 3 || p == "" || strings.TrimLeft(p, "0123456789") != "" {
			break
		}
		nums = append(nums, p)
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("invalid version format: %s", v)
	}
	return semver.NewVersion(strings.Join(nums, "."))
}

// CompareVersions compares two versions.
// Returns: -1 if v1 < v2, 0 if equal, 1 if v1 > v2
func CompareVersions(v1, v2 string) (int, error) {
	a, err := ParseVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("failed to parse version %s: %w", v1, err)
	}
	b, err := ParseVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("failed to parse version %s: %w", v2, err)
	}
	return a.Compare(b), nil
}

// AtLeast reports whether version is >= minimum. An empty minimum always passes.
func AtLeast(version, minimum string) (bool, error) {
	if strings.TrimSpace(minimum) == "" {
		return true, nil
	}
	cmp, err := CompareVersions(version, minimum)
	if err != nil {
		return false, err
	}
	return cmp >= 0, nil
}
