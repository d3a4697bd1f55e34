// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detect finds record fields that hold crackable hash material and
// infers the hash family of each value.
package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/credsearch/pkg/types"
)

var (
	hexRe      = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
	bcryptRe   = regexp.MustCompile(`^\$2[abxy]?\$\d{2}\$[./A-Za-z0-9]{1,53}$`)
	modCryptRe = regexp.MustCompile(`^\$[0-9a-z]{1,10}\$[^\s$]*\$?[^\s]+$`)
	spaceRe    = regexp.MustCompile(`\s`)
)

// nameRule ties a field name fragment to the family it names.
type nameRule struct {
	fragment string
	family   types.HashType
}

// nameRules are checked in order; more specific fragments come first so
// "sha256" is not taken for "sha".
var nameRules = []nameRule{
	{"ntlm", types.HashNTLM},
	{"bcrypt", types.HashBcrypt},
	{"md5", types.HashMD5},
	{"sha512", types.HashSHA512},
	{"sha-512", types.HashSHA512},
	{"sha_512", types.HashSHA512},
	{"sha256", types.HashSHA256},
	{"sha-256", types.HashSHA256},
	{"sha_256", types.HashSHA256},
	{"sha1", types.HashSHA1},
	{"sha-1", types.HashSHA1},
	{"sha_1", types.HashSHA1},
}

// genericFragments name fields that hold hash material of no particular
// family. A non-empty value in such a field is a candidate even when its
// shape is not recognized, which covers base64 digests, hash:salt pairs and
// LDAP-style {SSHA} strings.
var genericFragments = []string{"hash", "crypt", "pbkdf2", "digest"}

// hexLengths maps unambiguous hex digest lengths to their family.
var hexLengths = map[int]types.HashType{
	40:  types.HashSHA1,
	64:  types.HashSHA256,
	128: types.HashSHA512,
}

// unknownHexLengths are digest sizes that look like hashes but name no
// single family: 32 is MD5 or NTLM, the rest are truncated or less common
// digests.
var unknownHexLengths = map[int]bool{16: true, 32: true, 48: true, 56: true, 96: true}

// Detect returns the hash candidates in records. Records are visited in input
// order and fields in sorted dotted-path order, so the same input always
// yields the same candidates in the same order. List values are checked
// element by element under the parent path. Empty, null, and non-hash values
// are skipped. RawValue holds the value with surrounding whitespace removed.
func Detect(records []types.Record) []types.HashCandidate {
	var out []types.HashCandidate
	for i, r := range records {
		r.Walk(func(path string, v any) {
			for _, s := range values(v) {
				s = strings.TrimSpace(s)
				if t, ok := Classify(path, s); ok {
					out = append(out, types.HashCandidate{
						RecordIndex:  i,
						FieldName:    path,
						RawValue:     s,
						InferredType: t,
					})
				}
			}
		})
	}
	return out
}

// Classify infers the family of a single field value. It reports false when
// the value does not look like a hash at all.
func Classify(field, value string) (types.HashType, bool) {
	v := strings.TrimSpace(value)
	if v == "" || spaceRe.MatchString(v) {
		return "", false
	}

	if t, ok := byName(field, v); ok {
		return t, true
	}
	if t, ok := byStructure(v); ok {
		return t, true
	}
	if looksHashLike(v) || genericName(field) {
		return types.HashUnknown, true
	}
	return "", false
}

// fieldName returns the lowercased last segment of a dotted path.
func fieldName(field string) string {
	name := strings.ToLower(field)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func genericName(field string) bool {
	name := fieldName(field)
	for _, f := range genericFragments {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

// byName accepts a family named by the field only when the value has that
// family's shape.
func byName(field, v string) (types.HashType, bool) {
	name := fieldName(field)
	for _, rule := range nameRules {
		if strings.Contains(name, rule.fragment) && fits(rule.family, v) {
			return rule.family, true
		}
	}
	return "", false
}

func byStructure(v string) (types.HashType, bool) {
	if bcryptRe.MatchString(v) {
		return types.HashBcrypt, true
	}
	if hexRe.MatchString(v) {
		if t, ok := hexLengths[len(v)]; ok {
			return t, true
		}
	}
	return "", false
}

// looksHashLike is the last resort. Pure digit strings are left out so
// account numbers and phone numbers are not taken for digests.
func looksHashLike(v string) bool {
	if digitsRe.MatchString(v) {
		return false
	}
	if hexRe.MatchString(v) && unknownHexLengths[len(v)] {
		return true
	}
	return modCryptRe.MatchString(v)
}

// fits reports whether v has the format of family t.
func fits(t types.HashType, v string) bool {
	switch t {
	case types.HashMD5, types.HashNTLM:
		return len(v) == 32 && hexRe.MatchString(v)
	case types.HashSHA1:
		return len(v) == 40 && hexRe.MatchString(v)
	case types.HashSHA256:
		return len(v) == 64 && hexRe.MatchString(v)
	case types.HashSHA512:
		return len(v) == 128 && hexRe.MatchString(v)
	case types.HashBcrypt:
		return bcryptRe.MatchString(v)
	}
	return false
}

// values returns the non-empty string forms of a field value. Lists yield
// one entry per element; nested lists and maps inside lists are ignored.
func values(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		var out []string
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FieldCount is the number of candidates found under one field path.
type FieldCount struct {
	Field string
	Count int
	Types []types.HashType
}

// Columns summarizes candidates by field path, sorted by path.
func Columns(candidates []types.HashCandidate) []FieldCount {
	byField := make(map[string]*FieldCount)
	seenType := make(map[string]map[types.HashType]bool)
	for _, c := range candidates {
		fc, ok := byField[c.FieldName]
		if !ok {
			fc = &FieldCount{Field: c.FieldName}
			byField[c.FieldName] = fc
			seenType[c.FieldName] = make(map[types.HashType]bool)
		}
		fc.Count++
		if !seenType[c.FieldName][c.InferredType] {
			seenType[c.FieldName][c.InferredType] = true
			fc.Types = append(fc.Types, c.InferredType)
		}
	}

	out := make([]FieldCount, 0, len(byField))
	for _, fc := range byField {
		out = append(out, *fc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// GroupByType splits candidates by inferred family, preserving candidate
// order within each group. Families are returned in types.HashTypes order.
func GroupByType(candidates []types.HashCandidate) ([]types.HashType, map[types.HashType][]types.HashCandidate) {
	groups := make(map[types.HashType][]types.HashCandidate)
	for _, c := range candidates {
		groups[c.InferredType] = append(groups[c.InferredType], c)
	}
	var order []types.HashType
	for _, t := range types.HashTypes {
		if len(groups[t]) > 0 {
			order = append(order, t)
		}
	}
	return order, groups
}
