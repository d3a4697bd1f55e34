// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// HashType is the inferred family of a hash value.
type HashType string

const (
	HashMD5     HashType = "md5"
	HashSHA1    HashType = "sha1"
	HashSHA256  HashType = "sha256"
	HashSHA512  HashType = "sha512"
	HashNTLM    HashType = "ntlm"
	HashBcrypt  HashType = "bcrypt"
	HashUnknown HashType = "unknown"
)

// HashTypes lists every known family in display order.
var HashTypes = []HashType{HashMD5, HashSHA1, HashSHA256, HashSHA512, HashNTLM, HashBcrypt, HashUnknown}

// ParseHashType maps a name such as "NTLM" or "sha-256" to a HashType.
// "auto" and the empty string map to HashUnknown.
func ParseHashType(s string) (HashType, error) {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	switch n {
	case "", "auto", "unknown":
		return HashUnknown, nil
	case "nt":
		return HashNTLM, nil
	}
	for _, t := range HashTypes {
		if string(t) == n {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown hash type %q", s)
}

// HashcatMode returns the hashcat -m value for the family, or "" when
// hashcat should auto-detect.
func (t HashType) HashcatMode() string {
	switch t {
	case HashMD5:
		return "0"
	case HashSHA1:
		return "100"
	case HashSHA256:
		return "1400"
	case HashSHA512:
		return "1700"
	case HashNTLM:
		return "1000"
	case HashBcrypt:
		return "3200"
	default:
		return ""
	}
}

// JohnFormat returns the John the Ripper --format value for the family, or
// "" when john should auto-detect.
func (t HashType) JohnFormat() string {
	switch t {
	case HashMD5:
		return "raw-md5"
	case HashSHA1:
		return "raw-sha1"
	case HashSHA256:
		return "raw-sha256"
	case HashSHA512:
		return "raw-sha512"
	case HashNTLM:
		return "nt"
	case HashBcrypt:
		return "bcrypt"
	default:
		return ""
	}
}

// HashCandidate is a field value that plausibly holds a hash. It refers back
// to its record by index and does not copy the record; candidates are only
// valid for the record slice they were detected in.
type HashCandidate struct {
	RecordIndex  int      `json:"record_index" yaml:"record_index"`
	FieldName    string   `json:"field_name" yaml:"field_name"`
	RawValue     string   `json:"raw_value" yaml:"raw_value"`
	InferredType HashType `json:"inferred_type" yaml:"inferred_type"`
}

// CrackResult is a candidate an engine reversed. A candidate without a
// CrackResult was simply not cracked.
type CrackResult struct {
	Candidate     HashCandidate `json:"candidate" yaml:"candidate"`
	Plaintext     string        `json:"plaintext" yaml:"plaintext"`
	CrackedBy     string        `json:"cracked_by" yaml:"cracked_by"`
	ElapsedMillis int64         `json:"elapsed_millis" yaml:"elapsed_millis"`
}
