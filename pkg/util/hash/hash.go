package hash

import "hash/fnv"

// StringToUint64 稳定的字符串哈希，同一输入在任何进程中结果相同
func StringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
