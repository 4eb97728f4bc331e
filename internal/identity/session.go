package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// SessionID returns the session id of a stored document: a uuid derived from
// kind and document id, so reopening a document finds its live session. A
// blank document id yields "".
func SessionID(kind, documentID string) string {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return ""
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	return derive("editorial:session:" + kind + ":" + documentID).String()
}

// derive hashes key with go-hashid. When hashing fails it falls back to a
// name based uuid over the same key.
func derive(key string) uuid.UUID {
	id, err := hashid.NewUUID(key, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err == nil && id != uuid.Nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}
