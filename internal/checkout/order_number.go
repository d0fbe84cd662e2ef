package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newOrderNumber builds a human-quotable unique reference. The date prefix
// keeps numbers roughly sortable; the uuid fragment keeps them unique without
// a counter table.
func newOrderNumber(now time.Time) string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), fragment)
}
