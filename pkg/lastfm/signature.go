package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// signParams generates the MD5 signature Last.fm requires on authenticated
// requests: parameters sorted by key, concatenated as key+value pairs, with
// the API secret appended, hashed with MD5.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var plain strings.Builder
	for _, k := range keys {
		plain.WriteString(k)
		plain.WriteString(params[k])
	}
	plain.WriteString(secret)

	sum := md5.Sum([]byte(plain.String()))
	return hex.EncodeToString(sum[:])
}
