package natsgroup

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// groupKeys renders the KV keys of one group.
type groupKeys struct {
	token string
}

func newGroupKeys(path string) groupKeys {
	return groupKeys{token: fmt.Sprintf("%016x", xxh3.HashString(path))}
}

func (k groupKeys) member(memberID string) string {
	return "m." + k.token + "." + memberID
}

func (k groupKeys) memberPrefix() string {
	return "m." + k.token + "."
}

func (k groupKeys) memberPattern() string {
	return "m." + k.token + ".*"
}

// memberID extracts the member ID from a member key of this group.
func (k groupKeys) memberID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, k.memberPrefix())
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

func (k groupKeys) lock(partitionID string) string {
	return "l." + k.token + "." + partitionID
}
