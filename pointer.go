package lfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Version is the only pointer format version accepted by ParsePointer.
const Version = "https://git-lfs.github.com/spec/v1"

// HashAlgorithm is the only oid algorithm accepted by ParsePointer.
const HashAlgorithm = digest.SHA256

// Pointer identifies one LFS object by content hash without carrying its
// bytes. Two pointers with the same OID refer to the same content; Size is
// informational.
type Pointer struct {
	// OID is the hex encoded SHA256 of the object, without algorithm prefix.
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// ParsePointer parses the text of an LFS pointer file.
//
// The text is a sequence of "key value" lines. The version must be Version
// and the oid must use HashAlgorithm; unknown keys are ignored. The hex
// digest itself is not validated.
func ParsePointer(text string) (Pointer, error) {
	var p Pointer
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return Pointer{}, &ProtocolError{Reason: fmt.Sprintf("line %q is not a key-value pair", line)}
		}

		switch key {
		case "version":
			if value != Version {
				return Pointer{}, &ProtocolError{Reason: fmt.Sprintf("unexpected version %q", value)}
			}
		case "oid":
			if !strings.Contains(value, ":") {
				return Pointer{}, &ProtocolError{Reason: fmt.Sprintf("oid %q has no hash algorithm", value)}
			}
			d := digest.Digest(value)
			if d.Algorithm() != HashAlgorithm {
				return Pointer{}, &ProtocolError{Reason: fmt.Sprintf("hash algorithm %q is not %s", d.Algorithm(), HashAlgorithm)}
			}
			if d.Encoded() == "" {
				return Pointer{}, &ProtocolError{Reason: "oid is empty"}
			}
			p.OID = d.Encoded()
		case "size":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil || size < 0 {
				return Pointer{}, &ProtocolError{Reason: fmt.Sprintf("invalid size %q", value)}
			}
			p.Size = size
		}
	}

	if p.OID == "" {
		return Pointer{}, &ProtocolError{Reason: "missing oid"}
	}
	return p, nil
}

// Digest returns the oid in algorithm-prefixed form.
func (p Pointer) Digest() digest.Digest {
	return digest.NewDigestFromEncoded(HashAlgorithm, p.OID)
}

// String renders p as pointer file text.
func (p Pointer) String() string {
	return fmt.Sprintf("version %s\noid %s\nsize %d\n", Version, p.Digest(), p.Size)
}
