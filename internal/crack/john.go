// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/credsearch/pkg/types"
)

const (
	binJohn = "john"

	johnStatusSeconds = "5"
)

var (
	// johnStatusRe matches status lines such as
	// "0g 0:00:00:02 45.67% (ETA: 12:00:03) 0g/s 1234p/s 1234c/s 1234C/s abc..xyz".
	johnStatusRe = regexp.MustCompile(`^(\d+)g (\d+):(\d{2}):(\d{2}):(\d{2})(?:\s+(\d+(?:\.\d+)?)%)?.*?\s(\d+(?:\.\d+)?)([KMGT]?)p/s`)

	// johnTagRe matches the format tag john prefixes to pot file hashes.
	johnTagRe = regexp.MustCompile(`^\$(dynamic_\d+|NT|MD5|SHA1|SHA256|SHA512|SHA384)\$`)
)

// John drives John the Ripper (jumbo) in wordlist mode. Results come from a
// private pot file.
type John struct {
	exec executor
}

func newJohn(x executor) *John { return &John{exec: x} }

func (j *John) Name() string { return string(types.EngineJohn) }

func (j *John) Available() bool {
	if _, err := j.exec.LookPath(binJohn); err != nil {
		return false
	}
	return j.exec.RunSilent(binJohn, "--list=build-info") == nil
}

func (j *John) Invocation(spec JobSpec) (Invocation, error) {
	path, err := binary(j.exec, binJohn)
	if err != nil {
		return Invocation{}, err
	}

	args := []string{"--wordlist=" + spec.Wordlist}
	format := spec.Selector
	if format == "" {
		format = spec.HashType.JohnFormat()
	}
	if format != "" {
		args = append(args, "--format="+format)
	}
	args = append(args,
		"--pot="+spec.PotFile,
		"--session="+filepath.Join(spec.Dir, "john"),
		"--progress-every="+johnStatusSeconds,
		spec.HashFile,
	)
	return Invocation{Path: path, Args: args}, nil
}

func (j *John) SuccessExit(code int) bool { return code == 0 }

func (j *John) ParseProgress(line string) (Progress, bool) {
	m := johnStatusRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Progress{}, false
	}

	var p Progress
	p.Recovered, _ = strconv.Atoi(m[1])
	days, _ := strconv.Atoi(m[2])
	hours, _ := strconv.Atoi(m[3])
	mins, _ := strconv.Atoi(m[4])
	secs, _ := strconv.Atoi(m[5])
	p.Elapsed = time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second
	if m[6] != "" {
		p.Percent, _ = strconv.ParseFloat(m[6], 64)
	}
	speed, _ := strconv.ParseFloat(m[7], 64)
	p.Speed = speed * unitScale(m[8])
	return p, true
}

func unitScale(u string) float64 {
	switch u {
	case "K":
		return 1e3
	case "M":
		return 1e6
	case "G":
		return 1e9
	case "T":
		return 1e12
	}
	return 1
}

func (j *John) Results(spec JobSpec) (map[string]string, error) {
	return readPairs(spec.PotFile, stripJohnTag)
}

// stripJohnTag removes tags like "$dynamic_0$" or "$NT$" so pot entries
// match the raw digests we wrote.
func stripJohnTag(h string) string {
	return johnTagRe.ReplaceAllString(h, "")
}
