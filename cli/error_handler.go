package cli

import (
	"fmt"
	"os"

	"github.com/lanathlor/Forge-sub000/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create a forge.yml or pass --config.\n")
		return err

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(os.Stderr, "Stuck thresholds must be strictly increasing (low < medium < high < critical).\n")
		return err

	case errors.ErrCodeTransportRefused:
		if forgeErr, ok := err.(*errors.ForgeError); ok {
			fmt.Fprintf(os.Stderr, "❌ Could not reach the status endpoint '%s'\n", forgeErr.Details["endpoint"])
			fmt.Fprintf(os.Stderr, "Check that the upstream daemon is running, or fix transport.endpoint in forge.yml.\n")
		}
		return err

	case errors.ErrCodeStaleData:
		if forgeErr, ok := err.(*errors.ForgeError); ok {
			fmt.Fprintf(os.Stderr, "⚠️  Displayed data is %ds old; the upstream connection is down.\n",
				forgeErr.Details["age_seconds"])
		}
		return err

	case errors.ErrCodeHubStopped:
		fmt.Fprintf(os.Stderr, "❌ The aggregation hub has shut down.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		if h.Verbose {
			if forgeErr, ok := err.(*errors.ForgeError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", forgeErr.ToJSON())
			}
		}
		return err
	}
}
