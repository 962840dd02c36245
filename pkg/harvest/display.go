package harvest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/harvest-client/pkg/client"
)

// ErrorDisplay is a human-facing description of a failed load.
type ErrorDisplay struct {
	Title       string
	Description string

	// Notify is set when the failure deserves an interrupting notification.
	Notify bool
}

// DescribeError maps err to a message for the named resource ("jobs",
// "pipeline"). 401/403 ask for a new API key, 429 asks the user to wait, and
// other statuses are reported generically with the code.
func DescribeError(err error, resource string) ErrorDisplay {
	var herr *client.HarvestError
	if !errors.As(err, &herr) {
		return ErrorDisplay{
			Title:       fmt.Sprintf("Unable to load %s", resource),
			Description: "Please try again.",
		}
	}

	switch herr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorDisplay{
			Title:       "Harvest authentication failed",
			Description: "Check your Harvest API key.",
			Notify:      true,
		}
	case http.StatusTooManyRequests:
		return ErrorDisplay{
			Title:       "Harvest rate limit reached",
			Description: "Wait a moment and try again.",
			Notify:      true,
		}
	default:
		return ErrorDisplay{
			Title:       fmt.Sprintf("Harvest API error (%d)", herr.StatusCode),
			Description: fmt.Sprintf("Unable to load %s. Please try again.", resource),
		}
	}
}
