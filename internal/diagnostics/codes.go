package diagnostics

// Error codes for the bell lowering core
const (
	// Recursion and loop depth (R prefix)
	ErrRecursionBudgetExceeded = "R0001"

	// Definite assignment (A prefix)
	ErrUseBeforeAssignment = "A0001"

	// Typed-tree contract (C prefix)
	ErrContractViolation = "C0001"
	ErrUnknownCallee     = "C0002"
	ErrUnknownVariable   = "C0003"
	ErrFieldNotFound     = "C0004"
	ErrInvalidBreak      = "C0005"
	ErrInvalidContinue   = "C0006"
	ErrArgumentCount     = "C0007"
	ErrNoEntryPoint      = "C0008"

	// Internal consistency (I prefix)
	ErrInternalConsistency = "I0001"

	// Input and output (F prefix)
	ErrInputFailure = "F0001"

	// Warnings (W prefix)
	WarnEntryRenamed = "W0001"
)
