package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint is an opaque content hash identifying the inputs of a task.
type Fingerprint string

// BlobID is the content address of an output bundle.
type BlobID string

// EmptyBlobID is the id of the zero-length bundle produced by a task without outputs.
var EmptyBlobID = BlobID(hex.EncodeToString(sha256.New().Sum(nil)))

// BlobIDOf returns the content address of a bundle.
func BlobIDOf(bundle []byte) BlobID {
	sum := sha256.Sum256(bundle)
	return BlobID(hex.EncodeToString(sum[:]))
}

// ObjectKey is a structured storage key. Backends address objects by its Digest.
type ObjectKey map[string]any

// Canonical returns the JSON encoding of the key with sorted map keys.
func (k ObjectKey) Canonical() []byte {
	// encoding/json sorts map keys, which makes the output canonical for flat keys.
	b, err := json.Marshal(map[string]any(k))
	if err != nil {
		// Keys only hold strings and ints.
		panic(err)
	}
	return b
}

// Digest returns the hex sha256 of the canonical key.
func (k ObjectKey) Digest() string {
	sum := sha256.Sum256(k.Canonical())
	return hex.EncodeToString(sum[:])
}

// String returns the canonical key.
func (k ObjectKey) String() string {
	return string(k.Canonical())
}

const storeVersion = 1

// VerdictKey returns the storage key for a task verdict at a fingerprint.
func VerdictKey(name TaskName, fp Fingerprint, v Verdict) ObjectKey {
	return ObjectKey{
		"type":        "verdict",
		"taskName":    name.String(),
		"fingerprint": string(fp),
		"verdict":     v.String(),
		"version":     storeVersion,
	}
}

// BlobKey returns the storage key of a bundle.
func BlobKey(id BlobID) ObjectKey {
	return ObjectKey{"type": "blob", "blobId": string(id), "version": storeVersion}
}

// AssetKey returns the storage key of a published asset.
func AssetKey(name TaskName, fp Fingerprint, path string) ObjectKey {
	return ObjectKey{
		"type":        "asset",
		"taskName":    name.String(),
		"fingerprint": string(fp),
		"path":        path,
		"version":     storeVersion,
	}
}
