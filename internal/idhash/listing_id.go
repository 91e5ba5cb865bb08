package idhash

import (
	"crypto/sha256"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
)

// idBytes is how much of the SHA256 digest is kept before encoding.
// 16 bytes gives a 22-character base58 id with negligible collision risk
// at catalog-marketplace scale.
const idBytes = 16

// ListingID computes a deterministic listing id.
// Formula: base58(SHA256(source|url|component_id)[:16])
// componentID is empty for unresolved candidate rows, which still yields
// a stable id for the (url, "") slot.
func ListingID(source, url, componentID string) string {
	return encode(source + "|" + url + "|" + componentID)
}

// BundleGroupID computes the shared opaque id for a bundle group.
// Component ids are sorted first so "A + B" and "B + A" produce the same
// group id for the same listing.
func BundleGroupID(url string, componentIDs []string) string {
	ids := make([]string, len(componentIDs))
	copy(ids, componentIDs)
	sort.Strings(ids)
	return encode(url + "|" + strings.Join(ids, "|"))
}

func encode(data string) string {
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:idBytes])
}
