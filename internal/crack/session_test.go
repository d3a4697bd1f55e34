// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/credsearch/pkg/types"
)

const sha1Hello = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"

func mixedCandidates() []types.HashCandidate {
	return []types.HashCandidate{
		{RecordIndex: 0, FieldName: "sha1", RawValue: sha1Hello, InferredType: types.HashSHA1},
		{RecordIndex: 1, FieldName: "md5", RawValue: md5Hello, InferredType: types.HashMD5},
		{RecordIndex: 2, FieldName: "md5", RawValue: md5World, InferredType: types.HashMD5},
	}
}

func TestSessionGroups(t *testing.T) {
	groups := sessionGroups(mixedCandidates(), SessionOptions{})
	require.Len(t, groups, 2)
	assert.Equal(t, types.HashMD5, groups[0].hashType)
	assert.Len(t, groups[0].candidates, 2)
	assert.Equal(t, types.HashSHA1, groups[1].hashType)

	groups = sessionGroups(mixedCandidates(), SessionOptions{Force: types.HashNTLM})
	require.Len(t, groups, 1)
	assert.Equal(t, types.HashNTLM, groups[0].hashType)
	assert.Len(t, groups[0].candidates, 3)

	groups = sessionGroups(mixedCandidates(), SessionOptions{Selector: "1800"})
	require.Len(t, groups, 1)
	assert.Equal(t, types.HashUnknown, groups[0].hashType)
}

func TestRunSession(t *testing.T) {
	sup := newTestSupervisor(t)
	var started []*Job

	res, err := RunSession(context.Background(), sup, &helperEngine{mode: "crack"}, mixedCandidates(), SessionOptions{
		OnJob: func(j *Job) { started = append(started, j) },
	})
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 2)
	assert.Len(t, started, 2)
	assert.Equal(t, types.HashMD5, res.Outcomes[0].HashType)
	assert.Equal(t, types.HashSHA1, res.Outcomes[1].HashType)
	assert.Empty(t, res.Failed())

	// The helper cracks the first hash of each job.
	require.Len(t, res.Results, 2)
	assert.Equal(t, md5Hello, res.Results[0].Candidate.RawValue)
	assert.Equal(t, sha1Hello, res.Results[1].Candidate.RawValue)
}

func TestRunSessionPartialFailure(t *testing.T) {
	sup := newTestSupervisor(t)
	res, err := RunSession(context.Background(), sup, &helperEngine{mode: "fail"}, mixedCandidates(), SessionOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Outcomes, 2)
	assert.Len(t, res.Failed(), 2)
	assert.Empty(t, res.Results)
}

func TestRunSessionCancelled(t *testing.T) {
	sup := newTestSupervisor(t)
	ctx, cancel := context.WithCancel(context.Background())

	res, err := RunSession(ctx, sup, &helperEngine{mode: "hang"}, mixedCandidates(), SessionOptions{
		OnJob: func(j *Job) {
			<-j.Progress()
			cancel()
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, Cancelled, res.Outcomes[0].State)
}

func TestRunSessionEmpty(t *testing.T) {
	res, err := RunSession(context.Background(), newTestSupervisor(t), &helperEngine{mode: "crack"}, nil, SessionOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Outcomes)
}
