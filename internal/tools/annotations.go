package tools

// ReadOnlyAnnotations describes tools that only compute over their input.
func ReadOnlyAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":   true,
		"idempotentHint": true,
		"openWorldHint":  false,
	}
}

// OpenWorldAnnotations describes tools that reach out to the network.
func OpenWorldAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":   true,
		"idempotentHint": false,
		"openWorldHint":  true,
	}
}
