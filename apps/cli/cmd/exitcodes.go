package cmd

// Exit codes for the hfdsb CLI
const (
	// ExitSuccess indicates the push completed
	ExitSuccess = 0

	// ExitUploadError indicates the Hub rejected or failed the upload
	ExitUploadError = 1

	// ExitDataError indicates a missing column or unreadable media file
	ExitDataError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
