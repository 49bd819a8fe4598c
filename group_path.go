package kgroup

import (
	"crypto/sha1" //nolint:gosec // digest is an addressing contract, not a security boundary
	"encoding/hex"
	"slices"
	"strings"
)

// GroupPath returns the coordination path of a group.
//
// Without hashing the path is root/group for any topic list. With hashing
// it is root/group/<sha1 hex of the sorted topic list>, where the list is
// rendered as ['a', 'b'] before hashing. Every process of a group must
// render the list identically, so the format is fixed.
//
// Parameters:
//   - root: Group root, e.g. "/yelp-kafka"
//   - group: Group name
//   - topics: Topic names in any order
//   - hashed: Whether to append the topic digest
//
// Returns:
//   - string: The group path
func GroupPath(root, group string, topics []string, hashed bool) string {
	path := root + "/" + group
	if !hashed {
		return path
	}

	return path + "/" + topicsDigest(topics)
}

func topicsDigest(topics []string) string {
	sum := sha1.Sum([]byte(quoteList(slices.Sorted(slices.Values(topics))))) //nolint:gosec // see import

	return hex.EncodeToString(sum[:])
}

// quoteList renders items as a bracketed list of single-quoted strings.
//
// Topic names are limited to [a-zA-Z0-9._-], so no escaping is needed.
func quoteList(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(item)
		b.WriteByte('\'')
	}
	b.WriteByte(']')

	return b.String()
}
