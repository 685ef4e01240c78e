// Package steplog writes the step log of a build run.
package steplog

import (
	"encoding/json"
	"fmt"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

type header struct {
	Type domain.StepType `json:"type"`
}

type buildRunStarted struct {
	Type       domain.StepType `json:"type"`
	BuildRunID string          `json:"buildRunId"`
}

type planPrepared struct {
	Type  domain.StepType   `json:"type"`
	Tasks []domain.TaskName `json:"tasks"`
}

type taskStore struct {
	Type        domain.StepType    `json:"type"`
	TaskName    domain.TaskName    `json:"taskName"`
	BlobID      domain.BlobID      `json:"blobId"`
	Fingerprint domain.Fingerprint `json:"fingerprint"`
	Files       []string           `json:"files"`
}

type testEnded struct {
	Type     domain.StepType `json:"type"`
	TaskName domain.TaskName `json:"taskName"`
	Verdict  string          `json:"verdict"`
}

type assetPublished struct {
	Type        domain.StepType    `json:"type"`
	TaskName    domain.TaskName    `json:"taskName"`
	Fingerprint domain.Fingerprint `json:"fingerprint"`
	Path        string             `json:"path"`
	Key         string             `json:"key"`
}

type buildRunEnded struct {
	Type    domain.StepType `json:"type"`
	Verdict string          `json:"verdict"`
}

// Encode validates steps and renders them as a single-line JSON array.
func Encode(steps []domain.Step) ([]byte, error) {
	records := make([]any, 0, len(steps))
	for i, step := range steps {
		if err := Validate(step); err != nil {
			return nil, zerr.With(err, "index", i)
		}
		records = append(records, toRecord(step))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode step log")
	}
	return data, nil
}

func toRecord(step domain.Step) any {
	switch s := step.(type) {
	case domain.BuildRunStarted:
		return buildRunStarted{Type: s.StepType(), BuildRunID: s.BuildRunID}
	case domain.PlanPrepared:
		return planPrepared{Type: s.StepType(), Tasks: nonNil(s.Tasks)}
	case domain.TaskStorePut:
		return taskStore{s.StepType(), s.TaskName, s.BlobID, s.Fingerprint, nonNil(s.Files)}
	case domain.TaskStoreGet:
		return taskStore{s.StepType(), s.TaskName, s.BlobID, s.Fingerprint, nonNil(s.Files)}
	case domain.TestEnded:
		return testEnded{Type: s.StepType(), TaskName: s.TaskName, Verdict: s.Verdict.String()}
	case domain.AssetPublished:
		return assetPublished{s.StepType(), s.TaskName, s.Fingerprint, s.Path, s.Key}
	case domain.BuildRunEnded:
		return buildRunEnded{Type: s.StepType(), Verdict: s.Verdict.String()}
	default:
		panic(fmt.Sprintf("steplog: unhandled step %T", step))
	}
}

// Decode parses a step log and validates every record.
func Decode(data []byte) ([]domain.Step, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zerr.Wrap(zerr.Wrap(domain.ErrInvalidStep, err.Error()), "failed to decode step log")
	}
	steps := make([]domain.Step, 0, len(raw))
	for i, msg := range raw {
		step, err := decodeOne(msg)
		if err != nil {
			return nil, zerr.With(err, "index", i)
		}
		if err := Validate(step); err != nil {
			return nil, zerr.With(err, "index", i)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func decodeOne(msg json.RawMessage) (domain.Step, error) {
	var h header
	if err := json.Unmarshal(msg, &h); err != nil {
		return nil, zerr.Wrap(domain.ErrInvalidStep, err.Error())
	}

	unmarshal := func(v any) error {
		if err := json.Unmarshal(msg, v); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrInvalidStep, err.Error()), "type", string(h.Type))
		}
		return nil
	}

	switch h.Type {
	case domain.StepBuildRunStarted:
		var r buildRunStarted
		if err := unmarshal(&r); err != nil {
			return nil, err
		}
		return domain.BuildRunStarted{BuildRunID: r.BuildRunID}, nil
	case domain.StepPlanPrepared:
		var r planPrepared
		if err := unmarshal(&r); err != nil {
			return nil, err
		}
		return domain.PlanPrepared{Tasks: r.Tasks}, nil
	case domain.StepTaskStorePut, domain.StepTaskStoreGet:
		var r taskStore
		if err := unmarshal(&r); err != nil {
			return nil, err
		}
		if h.Type == domain.StepTaskStorePut {
			return domain.TaskStorePut{TaskName: r.TaskName, BlobID: r.BlobID, Fingerprint: r.Fingerprint, Files: r.Files}, nil
		}
		return domain.TaskStoreGet{TaskName: r.TaskName, BlobID: r.BlobID, Fingerprint: r.Fingerprint, Files: r.Files}, nil
	case domain.StepTestEnded:
		var r testEnded
		if err := unmarshal(&r); err != nil {
			return nil, err
		}
		v, err := parseVerdict(r.Verdict)
		if err != nil {
			return nil, err
		}
		return domain.TestEnded{TaskName: r.TaskName, Verdict: v}, nil
	case domain.StepAssetPublished:
		var r assetPublished
		if err := unmarshal(&r); err != nil {
			return nil, err
		}
		return domain.AssetPublished{TaskName: r.TaskName, Fingerprint: r.Fingerprint, Path: r.Path, Key: r.Key}, nil
	case domain.StepBuildRunEnded:
		var r buildRunEnded
		if err := unmarshal(&r); err != nil {
			return nil, err
		}
		v, err := parseVerdict(r.Verdict)
		if err != nil {
			return nil, err
		}
		return domain.BuildRunEnded{Verdict: v}, nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidStep, "unknown step type"), "type", string(h.Type))
	}
}

func parseVerdict(s string) (domain.Verdict, error) {
	for _, v := range []domain.Verdict{domain.VerdictOK, domain.VerdictFail, domain.VerdictCrash} {
		if v.String() == s {
			return v, nil
		}
	}
	return domain.VerdictUnknown, zerr.With(zerr.Wrap(domain.ErrInvalidStep, "unknown verdict"), "verdict", s)
}

// Validate checks the required fields of a step.
func Validate(step domain.Step) error {
	var missing string
	switch s := step.(type) {
	case domain.BuildRunStarted:
		if s.BuildRunID == "" {
			missing = "buildRunId"
		}
	case domain.PlanPrepared:
	case domain.TaskStorePut:
		missing = storeMissing(s.TaskName, s.BlobID, s.Fingerprint)
	case domain.TaskStoreGet:
		missing = storeMissing(s.TaskName, s.BlobID, s.Fingerprint)
	case domain.TestEnded:
		switch {
		case s.TaskName == domain.TaskName{}:
			missing = "taskName"
		case s.Verdict == domain.VerdictUnknown:
			missing = "verdict"
		}
	case domain.AssetPublished:
		switch {
		case s.TaskName == domain.TaskName{}:
			missing = "taskName"
		case s.Fingerprint == "":
			missing = "fingerprint"
		case s.Path == "":
			missing = "path"
		case s.Key == "":
			missing = "key"
		}
	case domain.BuildRunEnded:
		if s.Verdict == domain.VerdictUnknown {
			missing = "verdict"
		}
	default:
		return zerr.With(zerr.Wrap(domain.ErrInvalidStep, "unknown step"), "type", fmt.Sprintf("%T", step))
	}
	if missing != "" {
		err := zerr.Wrap(domain.ErrInvalidStep, "missing "+missing)
		return zerr.With(zerr.With(err, "type", string(step.StepType())), "field", missing)
	}
	return nil
}

func storeMissing(name domain.TaskName, blob domain.BlobID, fp domain.Fingerprint) string {
	switch {
	case name == domain.TaskName{}:
		return "taskName"
	case blob == "":
		return "blobId"
	case fp == "":
		return "fingerprint"
	}
	return ""
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
