package ports

// Verifier checks that declared outputs exist.
//
//go:generate mockgen -source=verifier.go -destination=mocks/mock_verifier.go -package=mocks
type Verifier interface {
	// MissingOutputs returns the repo-relative outputs that do not exist under root.
	MissingOutputs(root string, outputs []string) ([]string, error)
}
