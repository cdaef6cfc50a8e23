package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField: "Required field is missing",
	CodeInvalidInput:  "Invalid input provided",
	CodeInvalidFormat: "Invalid data format",
	CodeNotFound:      "Resource not found",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Chain reader errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeContractReverted:         "Smart contract call reverted",

	// Token errors
	CodeInvalidAddress: "Invalid token address",
	CodeUnknownToken:   "Token metadata could not be resolved",

	// Quoting errors
	CodePoolNotFound:          "Pool not found for token pair",
	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodeNoLiquidity:           "No liquidity found for this token pair on any DEX",
	CodeVenueUnavailable:      "DEX venue temporarily unavailable",
	CodeInvalidQuote:          "Invalid quote data",
	CodeInvalidSlippage:       "Slippage must be between 0 and 100",
	CodeInvalidAmount:         "Amount must be a positive decimal",

	// Route building errors
	CodeEncodingFailed:  "Failed to encode swap calldata",
	CodeRouterNotSet:    "No router configured for this venue",
	CodeAllowanceFailed: "Failed to read token allowance",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
