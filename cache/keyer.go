package cache

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key derives a deterministic cache key from an operation name and the
// caller-supplied context map. Map iteration order does not affect the
// key: entries are hashed in sorted key order.
func Key(operation string, opCtx map[string]string) string {
	if len(opCtx) == 0 {
		return operation
	}

	keys := make([]string, 0, len(opCtx))
	for k := range opCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	_, _ = h.WriteString(operation)
	for _, k := range keys {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("\x01")
		_, _ = h.WriteString(opCtx[k])
	}
	return operation + ":" + strconv.FormatUint(h.Sum64(), 16)
}
