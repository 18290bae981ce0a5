package legco

import "fmt"

// ValidationError reports caller input that failed a parameter constraint.
// It is produced before any network call and maps to JSON-RPC invalid params.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// QueryBuildError reports an endpoint key with no registered field mapping.
// This is a registry bug, not a caller error.
type QueryBuildError struct {
	Endpoint string
}

func (e *QueryBuildError) Error() string {
	return fmt.Sprintf("unknown endpoint: %s", e.Endpoint)
}
