// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"encoding/json"
	"strings"

	"github.com/pdiddy/credsearch/pkg/types"
)

const (
	binHashcat = "hashcat"

	// hashcatStatusSeconds is how often hashcat prints a status line.
	hashcatStatusSeconds = "5"
)

// Hashcat drives hashcat in straight wordlist mode. It reads progress from
// --status-json lines and results from an outfile of hash:plain pairs.
type Hashcat struct {
	exec executor
}

func newHashcat(x executor) *Hashcat { return &Hashcat{exec: x} }

func (h *Hashcat) Name() string { return string(types.EngineHashcat) }

func (h *Hashcat) Available() bool {
	if _, err := h.exec.LookPath(binHashcat); err != nil {
		return false
	}
	return h.exec.RunSilent(binHashcat, "--version") == nil
}

func (h *Hashcat) Invocation(spec JobSpec) (Invocation, error) {
	path, err := binary(h.exec, binHashcat)
	if err != nil {
		return Invocation{}, err
	}

	args := []string{"-a", "0"}
	mode := spec.Selector
	if mode == "" {
		mode = spec.HashType.HashcatMode()
	}
	// Without -m hashcat autodetects the mode.
	if mode != "" {
		args = append(args, "-m", mode)
	}
	args = append(args,
		"--status",
		"--status-json",
		"--status-timer="+hashcatStatusSeconds,
		"--potfile-path", spec.PotFile,
		"--outfile", spec.OutFile,
		"--outfile-format=1,2",
		"--session", "credsearch-"+spec.ID,
		spec.HashFile,
		spec.Wordlist,
	)
	return Invocation{Path: path, Args: args}, nil
}

// SuccessExit accepts 0 (cracked) and 1 (exhausted).
func (h *Hashcat) SuccessExit(code int) bool {
	return code == 0 || code == 1
}

// hashcatStatus is the subset of a --status-json line we read.
type hashcatStatus struct {
	Progress        []float64 `json:"progress"`
	RecoveredHashes []int     `json:"recovered_hashes"`
	Devices         []struct {
		Speed float64 `json:"speed"`
	} `json:"devices"`
}

func (h *Hashcat) ParseProgress(line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Progress{}, false
	}
	var st hashcatStatus
	if err := json.Unmarshal([]byte(line), &st); err != nil || len(st.Progress) != 2 {
		return Progress{}, false
	}

	var p Progress
	if st.Progress[1] > 0 {
		p.Percent = st.Progress[0] / st.Progress[1] * 100
	}
	for _, d := range st.Devices {
		p.Speed += d.Speed
	}
	if len(st.RecoveredHashes) > 0 {
		p.Recovered = st.RecoveredHashes[0]
	}
	return p, true
}

func (h *Hashcat) Results(spec JobSpec) (map[string]string, error) {
	return readPairs(spec.OutFile, nil)
}
