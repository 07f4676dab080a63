package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Leasing-gateway specific error codes
const (
	// Chain client errors
	CodeChainConnectionFailed  Code = "CHAIN_CONNECTION_FAILED"
	CodeChainRPCError          Code = "CHAIN_RPC_ERROR"
	CodeChainIDMismatch        Code = "CHAIN_ID_MISMATCH"
	CodeGasEstimationFailed    Code = "GAS_ESTIMATION_FAILED"
	CodeInsufficientFunds      Code = "INSUFFICIENT_FUNDS"
	CodeTransactionReverted    Code = "TRANSACTION_REVERTED"
	CodeTransactionUnderpriced Code = "TRANSACTION_UNDERPRICED"
	CodeReceiptTimeout         Code = "RECEIPT_TIMEOUT"

	// Contract binding errors
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeEventDecodeFailed  Code = "EVENT_DECODE_FAILED"
	CodeMissingEvent       Code = "MISSING_EVENT"

	// Leasing workflow errors
	CodeOrphanedContract   Code = "ORPHANED_CONTRACT"
	CodeLeaseNotActive     Code = "LEASE_NOT_ACTIVE"
	CodeSubscriptionFailed Code = "SUBSCRIPTION_FAILED"

	// Wallet/session errors
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeNotAuthenticated    Code = "NOT_AUTHENTICATED"
	CodeLoginFailed         Code = "LOGIN_FAILED"
	CodeSessionRevoked      Code = "SESSION_REVOKED"
	CodeCustodianError      Code = "CUSTODIAN_ERROR"
)
