package main

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (bad config file, missing credentials)
	ExitDataError     = 3 // Data error (malformed search document or input papers)
	ExitProviderError = 4 // Every queried provider failed
)
