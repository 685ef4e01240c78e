package domain_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestParseTaskName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.TaskName
		wantErr bool
	}{
		{name: "Valid", input: "app:build", want: domain.NewTaskName("app", "build")},
		{name: "Missing Kind", input: "app:", wantErr: true},
		{name: "Missing Unit", input: ":build", wantErr: true},
		{name: "No Separator", input: "build", wantErr: true},
		{name: "Too Many Separators", input: "a:b:c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseTaskName(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidTaskName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestTaskName_TextRoundTrip(t *testing.T) {
	name := domain.NewTaskName("lib", "test")
	text, err := name.MarshalText()
	require.NoError(t, err)

	var decoded domain.TaskName
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, name, decoded)
}

func TestParsePurgePolicy(t *testing.T) {
	p, err := domain.ParsePurgePolicy("")
	require.NoError(t, err)
	assert.Equal(t, domain.PurgeAlways, p)

	p, err = domain.ParsePurgePolicy("never")
	require.NoError(t, err)
	assert.Equal(t, domain.PurgeNever, p)

	_, err = domain.ParsePurgePolicy("sometimes")
	require.ErrorIs(t, err, domain.ErrInvalidPurgePolicy)
}

func TestIsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "Cycle", err: domain.ErrCycleDetected, want: true},
		{name: "Wrapped Collision", err: zerr.Wrap(domain.ErrOutputCollision, "u:a and u:b"), want: true},
		{name: "With Metadata", err: zerr.With(zerr.Wrap(domain.ErrBuildFailed, "2 tasks"), "failed", 2), want: true},
		{name: "Storage Error", err: zerr.Wrap(domain.ErrStoreWriteFailed, "disk full"), want: false},
		{name: "Plain Error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsFailure(tt.err))
		})
	}
}

func TestEmptyBlobID(t *testing.T) {
	assert.Equal(t, domain.EmptyBlobID, domain.BlobIDOf(nil))
	assert.Equal(t,
		domain.BlobID("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"),
		domain.EmptyBlobID,
	)
}

func TestObjectKey_Digest(t *testing.T) {
	name := domain.NewTaskName("app", "build")

	ok := domain.VerdictKey(name, "abc", domain.VerdictOK)
	fail := domain.VerdictKey(name, "abc", domain.VerdictFail)
	again := domain.VerdictKey(name, "abc", domain.VerdictOK)

	assert.Equal(t, ok.Digest(), again.Digest())
	assert.NotEqual(t, ok.Digest(), fail.Digest())
	assert.Len(t, ok.Digest(), 64)
	assert.Equal(t,
		`{"fingerprint":"abc","taskName":"app:build","type":"verdict","verdict":"ok","version":1}`,
		ok.String(),
	)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "POSSIBLY_RESTORE_OUTPUTS", domain.PhasePossiblyRestoreOutputs.String())
	assert.Equal(t, "TERMINAL", domain.PhaseTerminal.String())
	assert.Equal(t, "INVALID", domain.Phase(42).String())
}

func TestLayoutPaths(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "DefaultKilnPath", got: domain.DefaultKilnPath(), expected: ".kiln"},
		{name: "DefaultStorePath", got: domain.DefaultStorePath(), expected: filepath.Join(".kiln", "store")},
		{name: "DefaultLogsPath", got: domain.DefaultLogsPath(), expected: filepath.Join(".kiln", "logs")},
		{name: "DefaultStepLogPath", got: domain.DefaultStepLogPath(), expected: filepath.Join(".kiln", "steps.json")},
		{name: "DefaultLedgerPath", got: domain.DefaultLedgerPath(), expected: filepath.Join(".kiln", "fingerprints.jsonl")},
		{
			name:     "TaskLogPath",
			got:      domain.TaskLogPath(domain.NewTaskName("app", "build")),
			expected: filepath.Join(".kiln", "logs", "app", "build.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestStep_Types(t *testing.T) {
	steps := []domain.Step{
		domain.BuildRunStarted{},
		domain.PlanPrepared{},
		domain.TaskStorePut{},
		domain.TaskStoreGet{},
		domain.TestEnded{},
		domain.AssetPublished{},
		domain.BuildRunEnded{},
	}
	seen := make(map[domain.StepType]bool)
	for _, s := range steps {
		seen[s.StepType()] = true
	}
	assert.Len(t, seen, len(steps))
}
