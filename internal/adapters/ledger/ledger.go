// Package ledger keeps an append-only record of computed fingerprints.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Ledger implements ports.Ledger as a JSON-lines file.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New creates a ledger appending to path. The file is created on first use.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Record appends entry as one line.
func (l *Ledger) Record(entry ports.LedgerEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return zerr.Wrap(err, domain.ErrLedgerWriteFailed.Error())
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLedgerWriteFailed.Error()), "path", l.path)
	}
	//nolint:gosec // the ledger path is derived from the workspace root
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLedgerWriteFailed.Error()), "path", l.path)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrLedgerWriteFailed.Error()), "path", l.path)
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLedgerWriteFailed.Error()), "path", l.path)
	}
	return nil
}

// Read returns every entry of the ledger at path, oldest first.
// A missing ledger has no entries.
func Read(path string) ([]ports.LedgerEntry, error) {
	//nolint:gosec // path is the workspace ledger
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read fingerprint ledger"), "path", path)
	}

	var entries []ports.LedgerEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for line := 1; scanner.Scan(); line++ {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var e ports.LedgerEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "corrupt fingerprint ledger"), "line", line)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
