package errors

// Generic error code definitions used as sensible defaults across modules.
const (
	CodeSystemGeneric     = "SYS-000"
	CodeNetworkGeneric    = "NET-000"
	CodeConfigGeneric     = "CFG-000"
	CodeValidationGeneric = "VAL-000"
	CodeIntegrityGeneric  = "INT-000"
	CodeDatabaseGeneric   = "DB-000"
)

// Specific error codes carried by well-known failure modes.
const (
	// CodeDownloadFailed marks a transfer that failed at the protocol level
	// or delivered a payload inconsistent with its declared length.
	CodeDownloadFailed = "NET-001"

	// CodeHashMismatch marks a downloaded file whose digest does not equal
	// the declared expectation.
	CodeHashMismatch = "INT-001"

	// CodeHashFormat marks an expected-hash string that is not valid
	// 64-character hexadecimal.
	CodeHashFormat = "VAL-001"

	// CodeManifestParse marks an asset manifest or hash manifest that could
	// not be decoded.
	CodeManifestParse = "CFG-001"
)
