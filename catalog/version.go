package catalog

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

var minimumVersion = mustConstraint(">= 10")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// server_version looks like 16.2, 16.2 (Debian 16.2-1.pgdg120+2) or 17beta1.
var serverVersionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)

// ServerVersion returns the version of the server q is connected to.
func ServerVersion(ctx context.Context, q Querier) (*semver.Version, error) {
	var s string
	if err := q.QueryRow(ctx, "show server_version").Scan(&s); err != nil {
		return nil, fmt.Errorf("read server_version: %w", err)
	}
	return ParseServerVersion(s)
}

// ParseServerVersion parses the server_version setting.
func ParseServerVersion(s string) (*semver.Version, error) {
	v := serverVersionPattern.FindString(s)
	if v == "" {
		return nil, fmt.Errorf("cannot parse server_version %q", s)
	}
	return semver.NewVersion(v)
}
