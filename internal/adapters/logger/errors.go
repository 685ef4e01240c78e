package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// zerr.Error satisfies both interfaces.
type messager interface {
	Message() string
}

type metadataCarrier interface {
	Metadata() map[string]any
}

type errorEntry struct {
	message  string
	metadata map[string]any
}

// collectErrorEntries flattens the chain of err into one entry per message.
// Wrappers without a message hand their metadata to the next entry.
func collectErrorEntries(err error) []errorEntry {
	var entries []errorEntry
	pending := map[string]any{}

	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, errorEntry{message: current.Error(), metadata: pending})
			break
		}
		if c, ok := current.(metadataCarrier); ok {
			maps.Copy(pending, c.Metadata())
		}
		if m.Message() != "" {
			entries = append(entries, errorEntry{message: m.Message(), metadata: pending})
			pending = map[string]any{}
		}
		current = errors.Unwrap(current)
	}
	if len(entries) == 0 {
		entries = append(entries, errorEntry{message: err.Error(), metadata: pending})
	}
	return entries
}

// formatErrorEntries renders the entries as a main error followed by its causes.
func formatErrorEntries(entries []errorEntry) string {
	var lines []string
	for i, entry := range entries {
		msgLines := strings.Split(entry.message, "\n")
		head, indent := "Error: ", "       "
		if i > 0 {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			head, indent = "    → ", "      "
		}
		lines = append(lines, head+msgLines[0])
		for _, l := range msgLines[1:] {
			lines = append(lines, indent+l)
		}
		for _, k := range slices.Sorted(maps.Keys(entry.metadata)) {
			lines = append(lines, fmt.Sprintf("%s%s=%v", indent, k, entry.metadata[k]))
		}
	}
	return strings.Join(lines, "\n")
}
