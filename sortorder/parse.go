package sortorder

import (
	"errors"
	"fmt"
	"strings"
)

// maximum number of colon-separated parts in a sort expression.
const exprPartsMax = 2

// ParseExpression parses a sort expression in "field:order" format.
// Supports:
//   - "field" - defaults to ascending order
//   - "field:asc" - explicit ascending order
//   - "field:desc" - explicit descending order
//
// Returns the field name and direction, or an error if parsing fails.
func ParseExpression(expr string) (string, Direction, error) {
	if strings.TrimSpace(expr) == "" {
		return "", Ascending, errors.New("empty sort expression")
	}

	parts := strings.Split(expr, ":")
	if len(parts) > exprPartsMax {
		return "", Ascending, fmt.Errorf("invalid format: too many colons in %q", expr)
	}

	field := strings.TrimSpace(parts[0])
	if field == "" {
		return "", Ascending, errors.New("empty sort expression")
	}

	order := "asc"
	if len(parts) == exprPartsMax {
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	}

	switch order {
	case "asc":
		return field, Ascending, nil
	case "desc":
		return field, Descending, nil
	default:
		return "", Ascending, fmt.Errorf("invalid sort order: %q (must be asc or desc)", order)
	}
}
