// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/credsearch/pkg/types"
)

func testSpec(dir string) JobSpec {
	return JobSpec{
		ID:       "job-1",
		Dir:      dir,
		HashFile: filepath.Join(dir, hashFileName),
		OutFile:  filepath.Join(dir, outFileName),
		PotFile:  filepath.Join(dir, potFileName),
		Wordlist: "/usr/share/wordlists/rockyou.txt",
		HashType: types.HashNTLM,
	}
}

func TestHashcatInvocation(t *testing.T) {
	h := newHashcat(&mockExecutor{availableBins: map[string]bool{"hashcat": true}})
	spec := testSpec("/tmp/job")

	inv, err := h.Invocation(spec)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/hashcat", inv.Path)
	assert.Equal(t, []string{
		"-a", "0", "-m", "1000",
		"--status", "--status-json", "--status-timer=5",
		"--potfile-path", "/tmp/job/engine.pot",
		"--outfile", "/tmp/job/cracked.out",
		"--outfile-format=1,2",
		"--session", "credsearch-job-1",
		"/tmp/job/hashes.txt",
		"/usr/share/wordlists/rockyou.txt",
	}, inv.Args)

	spec.Selector = "1800"
	inv, err = h.Invocation(spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"-a", "0", "-m", "1800"}, inv.Args[:4])

	spec.Selector = ""
	spec.HashType = types.HashUnknown
	inv, err = h.Invocation(spec)
	require.NoError(t, err)
	assert.NotContains(t, inv.Args, "-m")
}

func TestHashcatInvocationMissingBinary(t *testing.T) {
	_, err := newHashcat(&mockExecutor{}).Invocation(testSpec("/tmp/job"))
	assert.Error(t, err)
}

func TestHashcatSuccessExit(t *testing.T) {
	h := newHashcat(&mockExecutor{})
	assert.True(t, h.SuccessExit(0))
	assert.True(t, h.SuccessExit(1))
	assert.False(t, h.SuccessExit(2))
	assert.False(t, h.SuccessExit(255))
	assert.False(t, h.SuccessExit(-1))
}

func TestHashcatParseProgress(t *testing.T) {
	h := newHashcat(&mockExecutor{})

	p, ok := h.ParseProgress(`{"session":"credsearch","status":3,"progress":[2500,10000],"recovered_hashes":[1,4],"devices":[{"device_id":1,"speed":1500},{"device_id":2,"speed":500}],"time_start":1700000000}`)
	require.True(t, ok)
	assert.InDelta(t, 25.0, p.Percent, 0.001)
	assert.Equal(t, 2000.0, p.Speed)
	assert.Equal(t, 1, p.Recovered)

	for _, line := range []string{
		"Session..........: hashcat",
		"{not json",
		`{"status":3}`,
		"",
	} {
		_, ok := h.ParseProgress(line)
		assert.False(t, ok, line)
	}
}

func TestHashcatResults(t *testing.T) {
	dir := t.TempDir()
	spec := testSpec(dir)
	require.NoError(t, os.WriteFile(spec.OutFile, []byte(
		"8846f7eaee8fb117ad06bdd830b7586c:password\n"+
			md5Hello+":$HEX[68656c6c6f3a]\n"), 0o600))

	got, err := newHashcat(&mockExecutor{}).Results(spec)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"8846f7eaee8fb117ad06bdd830b7586c": "password",
		md5Hello:                           "hello:",
	}, got)
}
