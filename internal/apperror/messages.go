package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Chain client errors
	CodeChainConnectionFailed:  "Failed to connect to chain node",
	CodeChainRPCError:          "Chain RPC call failed",
	CodeChainIDMismatch:        "Connected chain does not match configured chain",
	CodeGasEstimationFailed:    "Gas estimation failed",
	CodeInsufficientFunds:      "Insufficient balance for requested amount",
	CodeTransactionReverted:    "Transaction reverted on chain",
	CodeTransactionUnderpriced: "Transaction underpriced",
	CodeReceiptTimeout:         "Timed out waiting for transaction receipt",

	// Contract binding errors
	CodeContractCallFailed: "Smart contract call failed",
	CodeEventDecodeFailed:  "Failed to decode contract event",
	CodeMissingEvent:       "Expected event missing from transaction receipt",

	// Leasing workflow errors
	CodeOrphanedContract:   "Leasing contract deployed but request creation failed",
	CodeLeaseNotActive:     "Leasing request is not in the active funding state",
	CodeSubscriptionFailed: "Failed to subscribe to contract events",

	// Wallet/session errors
	CodeProviderUnavailable: "Wallet provider is unavailable",
	CodeNotAuthenticated:    "Operation requires a logged-in session",
	CodeLoginFailed:         "Login failed",
	CodeSessionRevoked:      "Session was revoked by the provider",
	CodeCustodianError:      "Custodial wallet provider error",
}
