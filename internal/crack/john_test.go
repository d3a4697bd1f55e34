// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/credsearch/pkg/types"
)

func TestJohnInvocation(t *testing.T) {
	j := newJohn(&mockExecutor{availableBins: map[string]bool{"john": true}})
	spec := testSpec("/tmp/job")

	inv, err := j.Invocation(spec)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/john", inv.Path)
	assert.Equal(t, []string{
		"--wordlist=/usr/share/wordlists/rockyou.txt",
		"--format=nt",
		"--pot=/tmp/job/engine.pot",
		"--session=/tmp/job/john",
		"--progress-every=5",
		"/tmp/job/hashes.txt",
	}, inv.Args)

	spec.HashType = types.HashUnknown
	inv, err = j.Invocation(spec)
	require.NoError(t, err)
	assert.NotContains(t, inv.Args, "--format=")
	assert.Len(t, inv.Args, 5)
}

func TestJohnParseProgress(t *testing.T) {
	j := newJohn(&mockExecutor{})

	p, ok := j.ParseProgress("2g 0:01:02:03 45.67% (ETA: 12:00:03) 0.1234g/s 12.5Kp/s 12.5Kc/s 25.0KC/s abc..xyz")
	require.True(t, ok)
	assert.Equal(t, 2, p.Recovered)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, p.Elapsed)
	assert.InDelta(t, 45.67, p.Percent, 0.001)
	assert.InDelta(t, 12500.0, p.Speed, 0.001)

	p, ok = j.ParseProgress("1g 0:00:00:00 DONE (2026-01-02 10:00) 50.00g/s 3200p/s 3200c/s 3200C/s 123456..password")
	require.True(t, ok)
	assert.Equal(t, 1, p.Recovered)
	assert.Zero(t, p.Percent)
	assert.Equal(t, 3200.0, p.Speed)

	for _, line := range []string{
		"Loaded 3 password hashes with no different salts (Raw-MD5 [MD5 256/256 AVX2 8x3])",
		"Press 'q' or Ctrl-C to abort, almost any other key for status",
		"hello            (?)",
	} {
		_, ok := j.ParseProgress(line)
		assert.False(t, ok, line)
	}
}

func TestJohnResultsStripsTags(t *testing.T) {
	spec := testSpec(t.TempDir())
	require.NoError(t, os.WriteFile(spec.PotFile, []byte(
		"$dynamic_0$"+md5Hello+":hello\n"+
			"$NT$8846f7eaee8fb117ad06bdd830b7586c:password\n"+
			"$2a$05$abcdefghijklmnopqrstuu5s2v8.iXieOjg/.AySBTTZIIVFJeBui:letmein\n"), 0o600))

	got, err := newJohn(&mockExecutor{}).Results(spec)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		md5Hello:                           "hello",
		"8846f7eaee8fb117ad06bdd830b7586c": "password",
		"$2a$05$abcdefghijklmnopqrstuu5s2v8.iXieOjg/.AySBTTZIIVFJeBui": "letmein",
	}, got)
}

func TestJohnSuccessExit(t *testing.T) {
	j := newJohn(&mockExecutor{})
	assert.True(t, j.SuccessExit(0))
	assert.False(t, j.SuccessExit(1))
}
