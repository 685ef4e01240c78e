package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// InputPath is one input of a fingerprint.
type InputPath struct {
	// Label identifies the input inside the fingerprint.
	Label string
	// Path is the location to hash, relative to the workspace root.
	Path string
}

// FingerprintInput is everything a task fingerprint is derived from.
type FingerprintInput struct {
	Declaration string
	Deps        []domain.Fingerprint
	Inputs      []InputPath
	// Ignore holds glob patterns matched against base names while walking inputs.
	Ignore []string
}

// Fingerprinter computes content fingerprints.
//
//go:generate mockgen -source=fingerprint.go -destination=mocks/mock_fingerprint.go -package=mocks
type Fingerprinter interface {
	// HashTree returns the fingerprint of the file or directory at path, relative to root.
	HashTree(root, path string, ignore []string) (string, error)
	// Fingerprint combines dependency fingerprints, input trees and the declaration.
	Fingerprint(ctx context.Context, root string, in FingerprintInput) (domain.Fingerprint, error)
}

// LedgerEntry is one computed fingerprint.
type LedgerEntry struct {
	BuildRunID  string               `json:"buildRunId"`
	TaskName    domain.TaskName      `json:"taskName"`
	Fingerprint domain.Fingerprint   `json:"fingerprint"`
	Deps        []domain.Fingerprint `json:"deps"`
	Inputs      []string             `json:"inputs"`
}

// Ledger records computed fingerprints.
type Ledger interface {
	Record(entry LedgerEntry) error
}
