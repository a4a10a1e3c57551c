package domain

import "errors"

// Error taxonomy for the evaluation engine. Run-fatal errors abort before
// any case executes; case-fatal errors are converted into a CaseResult with
// StatusError at the case boundary and never escape the runner.
var (
	// ErrServerConnection indicates the MCP server connection could not be
	// established. Fatal to the whole run; no partial suite is attempted.
	ErrServerConnection = errors.New("server connection failed")

	// ErrToolLoopExceeded indicates the model kept requesting tool calls
	// past the configured maximum depth. Fatal to the case; the partial
	// transcript is preserved.
	ErrToolLoopExceeded = errors.New("tool call loop exceeded maximum depth")

	// ErrJudgeUnavailable indicates the judge model could not be reached
	// (network or auth failure). Fatal to the case, not retried.
	ErrJudgeUnavailable = errors.New("judge model unavailable")

	// ErrJudgeParse indicates the judge response was missing required score
	// fields or carried values outside the rubric range. Fatal to the case;
	// the case is never silently scored zero.
	ErrJudgeParse = errors.New("judge response parse failed")

	// ErrCaseTimeout indicates a case exceeded its effective timeout.
	// Fatal to the case; the suite continues with remaining cases.
	ErrCaseTimeout = errors.New("case timed out")
)
