package firestore

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// pendingLockID is the document ID of the lock held by a pending request. Its parts are
// caller supplied and may contain '/' or ':', so the ID is a digest of a length prefixed
// encoding rather than the readable key.
func pendingLockID(key model.PendingKey) string {
	h := sha256.New()
	for _, part := range []string{string(key.Kind), key.RequesterID, key.Target} {
		_ = binary.Write(h, binary.BigEndian, uint64(len(part)))
		_, _ = h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// userDocID escapes a user ID into a single valid path segment. PathEscape never emits
// "%2E", so the dot-only IDs that Firestore rejects get unique replacements.
func userDocID(id string) string {
	escaped := url.PathEscape(id)
	if escaped == "." || escaped == ".." {
		return strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}
