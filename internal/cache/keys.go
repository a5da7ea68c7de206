package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/twmb/murmur3"
)

// rootToken prefixes every cache key so bulk invalidation can target the
// whole keyspace without touching unrelated databases.
const rootToken = "vulnwatch"

// maxKeyLength bounds derived keys; longer argument lists collapse to a
// content hash.
const maxKeyLength = 200

// DeriveKey builds a deterministic cache key from a namespace, positional
// arguments and named arguments. Named arguments are sorted by name so the
// key is independent of call-site ordering. Keys whose joined form exceeds
// maxKeyLength replace the argument portion with a 128-bit murmur3 digest,
// keeping keys bounded but reproducible for identical inputs.
func DeriveKey(namespace string, args []string, kwargs map[string]string) string {
	parts := make([]string, 0, 1+len(args)+len(kwargs))
	parts = append(parts, namespace)
	parts = append(parts, args...)

	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+":"+kwargs[name])
	}

	joined := strings.Join(parts, ":")
	if len(joined) > maxKeyLength {
		h1, h2 := murmur3.Sum128([]byte(joined))
		return fmt.Sprintf("%s:%s:%016x%016x", rootToken, namespace, h1, h2)
	}

	return rootToken + ":" + joined
}

// Pattern expands a caller-supplied glob to the rooted keyspace, matching
// the admin surface semantics of listing and invalidation.
func Pattern(pattern string) string {
	return rootToken + ":" + pattern
}
