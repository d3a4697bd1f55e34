// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package detect

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/credsearch/pkg/types"
)

const (
	md5Hello     = "5d41402abc4b2a76b9719d911017c592"
	ntlmPassword = "8846f7eaee8fb117ad06bdd830b7586c"
	sha1Hello    = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	sha256Pass   = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	bcryptHash   = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

var sha512Value = strings.Repeat("ab", 64)

func TestDetectNamedNTLMAndFreeText(t *testing.T) {
	records := []types.Record{
		{"ntlm_hash": ntlmPassword, "notes": "changed password after the breach"},
	}

	got := Detect(records)
	require.Len(t, got, 1)
	assert.Equal(t, types.HashCandidate{
		RecordIndex:  0,
		FieldName:    "ntlm_hash",
		RawValue:     ntlmPassword,
		InferredType: types.HashNTLM,
	}, got[0])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  types.HashType
		ok    bool
	}{
		{"md5 by name", "md5_hash", md5Hello, types.HashMD5, true},
		{"ntlm by name", "NTLM", ntlmPassword, types.HashNTLM, true},
		{"32 hex unnamed is unknown", "hashed_password", md5Hello, types.HashUnknown, true},
		{"sha1 by length", "hashed_password", sha1Hello, types.HashSHA1, true},
		{"sha256 by length", "password_hash", sha256Pass, types.HashSHA256, true},
		{"sha512 by length", "digest", sha512Value, types.HashSHA512, true},
		{"sha256 by name", "sha-256", sha256Pass, types.HashSHA256, true},
		{"bcrypt by prefix", "hashed_password", bcryptHash, types.HashBcrypt, true},
		{"short bcrypt by name", "bcrypt_hash", "$2a$10$N9qo8uLOickgx2ZMRZoMye", types.HashBcrypt, true},
		{"name mismatch falls through to structure", "md5", sha1Hello, types.HashSHA1, true},
		{"uppercase hex", "hash", strings.ToUpper(sha1Hello), types.HashSHA1, true},
		{"sha512crypt is unknown", "hashed_password", "$6$saltsalt$qFmFH.bQmmtXzyBY0s9v7Oicd2z4XSIecDzlB5KiA2/jctKu9YterLp8wwnSq.qc.eoxqOmSuNp2xS0ktL3nh/", types.HashUnknown, true},
		{"16 hex is unknown", "hash", "deadbeefcafebabe", types.HashUnknown, true},
		{"digits are not hashes", "account", "1234567890123456", "", false},
		{"odd hex length", "token", "abc123", "", false},
		{"base64 digest in hash field", "hashed_password", "X03MO1qnZdYdgyfeuILPmQ==", types.HashUnknown, true},
		{"hash:salt pair", "password_hash", "5f4dcc3b5aa765d61d8327deb882cf99:s4lt", types.HashUnknown, true},
		{"ssha in nested hash field", "auth.hash", "{SSHA}W6ph5Mm5Pz8GgiULbPgzG37mj9g=", types.HashUnknown, true},
		{"pbkdf2 field", "pbkdf2", "sha256:1000:c2FsdA==:aGFzaA==", types.HashUnknown, true},
		{"free text in hash field", "hash", "not available", "", false},
		{"base64 outside hash field", "token", "X03MO1qnZdYdgyfeuILPmQ==", "", false},
		{"email", "email", "user@example.com", "", false},
		{"plaintext password", "password", "hunter2", "", false},
		{"empty", "hashed_password", "", "", false},
		{"blank", "hashed_password", "   ", "", false},
		{"free text", "notes", "see md5 5d41402abc4b2a76b9719d911017c592", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.field, tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectDeterministicAndOrdered(t *testing.T) {
	records := []types.Record{
		{"sha256_hash": sha256Pass, "md5_hash": md5Hello, "email": "a@example.com"},
		{"email": "b@example.com"},
		{"hashed_password": bcryptHash},
	}

	first := Detect(records)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Detect(records))
	}

	require.Len(t, first, 3)
	assert.Equal(t, "md5_hash", first[0].FieldName)
	assert.Equal(t, "sha256_hash", first[1].FieldName)
	assert.Equal(t, 0, first[1].RecordIndex)
	assert.Equal(t, 2, first[2].RecordIndex)
	assert.Equal(t, types.HashBcrypt, first[2].InferredType)
}

func TestDetectListsAndNested(t *testing.T) {
	var records []types.Record
	require.NoError(t, json.Unmarshal([]byte(`[
		{"hashed_password": ["`+sha1Hello+`", "", null, "`+sha256Pass+`"],
		 "creds": {"ntlm": "`+ntlmPassword+`", "note": "none"},
		 "balance": 12}
	]`), &records))

	got := Detect(records)
	require.Len(t, got, 3)
	assert.Equal(t, "creds.ntlm", got[0].FieldName)
	assert.Equal(t, types.HashNTLM, got[0].InferredType)
	assert.Equal(t, "hashed_password", got[1].FieldName)
	assert.Equal(t, types.HashSHA1, got[1].InferredType)
	assert.Equal(t, "hashed_password", got[2].FieldName)
	assert.Equal(t, types.HashSHA256, got[2].InferredType)
}

func TestDetectGenericHashFields(t *testing.T) {
	records := []types.Record{
		{"hashed_password": "X03MO1qnZdYdgyfeuILPmQ=="},
		{"password_hash": "5f4dcc3b5aa765d61d8327deb882cf99:s4lt"},
		{"hash": "{SSHA}W6ph5Mm5Pz8GgiULbPgzG37mj9g="},
	}

	got := Detect(records)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.RecordIndex)
		assert.Equal(t, types.HashUnknown, c.InferredType)
	}
	assert.Equal(t, "hashed_password", got[0].FieldName)
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99:s4lt", got[1].RawValue)
}

func TestDetectTrimsRawValue(t *testing.T) {
	got := Detect([]types.Record{{"password_hash": "  " + sha1Hello + "\n"}})
	require.Len(t, got, 1)
	assert.Equal(t, sha1Hello, got[0].RawValue)
	assert.Equal(t, types.HashSHA1, got[0].InferredType)
}

func TestDetectEmpty(t *testing.T) {
	assert.Empty(t, Detect(nil))
	assert.Empty(t, Detect([]types.Record{{}, {"hash": nil, "password": ""}}))
}

func TestDetectDoesNotMutate(t *testing.T) {
	rec := types.Record{"ntlm": ntlmPassword}
	Detect([]types.Record{rec})
	assert.Equal(t, types.Record{"ntlm": ntlmPassword}, rec)
}

func TestColumns(t *testing.T) {
	got := Columns([]types.HashCandidate{
		{FieldName: "sha", InferredType: types.HashSHA1},
		{FieldName: "hashed_password", InferredType: types.HashUnknown},
		{FieldName: "sha", InferredType: types.HashSHA1},
		{FieldName: "hashed_password", InferredType: types.HashBcrypt},
	})
	assert.Equal(t, []FieldCount{
		{Field: "hashed_password", Count: 2, Types: []types.HashType{types.HashUnknown, types.HashBcrypt}},
		{Field: "sha", Count: 2, Types: []types.HashType{types.HashSHA1}},
	}, got)
}

func TestGroupByType(t *testing.T) {
	cands := []types.HashCandidate{
		{RecordIndex: 0, InferredType: types.HashSHA1},
		{RecordIndex: 1, InferredType: types.HashMD5},
		{RecordIndex: 2, InferredType: types.HashSHA1},
	}
	order, groups := GroupByType(cands)
	assert.Equal(t, []types.HashType{types.HashMD5, types.HashSHA1}, order)
	assert.Len(t, groups[types.HashSHA1], 2)
	assert.Equal(t, 2, groups[types.HashSHA1][1].RecordIndex)
}
