package lifecycle

import "gorm.io/gorm"

// State is the soft-delete lifecycle shared by every persisted entity.
// Rows are never hard-deleted; DELETED rows stay for the audit trail but
// are invisible to reads.
type State string

const (
	StateActive  State = "ACTIVE"
	StateDeleted State = "DELETED"
)

// Visible is the single visibility predicate. Repositories apply it on
// every read instead of spelling out their own state checks.
func Visible(stmt *gorm.DB) *gorm.DB {
	return stmt.Where("state = ?", StateActive)
}

// VisibleSQL is the same predicate for raw queries, bound with StateActive.
const VisibleSQL = "state = ?"
