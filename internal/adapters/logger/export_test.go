package logger

// FormatError exposes the pretty error rendering for testing.
func FormatError(err error) string {
	return formatErrorEntries(collectErrorEntries(err))
}
