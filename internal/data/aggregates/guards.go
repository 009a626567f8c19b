package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
)

// CASGuard runs compare-and-set updates: a row changes only while it still
// matches what the caller read.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return dbc.DB(g.db), nil
}

type casScope struct {
	version  *int
	statuses []string
	extra    map[string]any
}

func (g CASGuard) update(dbc dbctx.Context, table string, id uuid.UUID, scope casScope, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for a guarded update")
	}
	if len(updates) == 0 {
		return false, ValidationError("guarded update has no columns")
	}
	q := db.Table(table).Where("id = ?", id)
	if scope.version != nil {
		if *scope.version < 0 {
			return false, ValidationError("expected version must be >= 0")
		}
		q = q.Where("version = ?", *scope.version)
	}
	if scope.statuses != nil {
		if len(scope.statuses) == 0 {
			return false, ValidationError("allowed statuses must not be empty")
		}
		q = q.Where("status IN ?", scope.statuses)
	}
	for col, v := range scope.extra {
		q = q.Where(col+" = ?", v)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateByVersion updates a row only when id+version match.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	return g.update(dbc, table, id, casScope{version: &expectedVersion}, updates)
}

// UpdateByStatus updates a row only when its status is one of allowedStatuses.
// scope adds equality filters such as the owning session.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, scope map[string]any, updates map[string]any) (bool, error) {
	if allowedStatuses == nil {
		allowedStatuses = []string{}
	}
	return g.update(dbc, table, id, casScope{statuses: allowedStatuses, extra: scope}, updates)
}

// UpdateByVersionAndStatus combines both guards.
func (g CASGuard) UpdateByVersionAndStatus(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, allowedStatuses []string, updates map[string]any) (bool, error) {
	if allowedStatuses == nil {
		allowedStatuses = []string{}
	}
	return g.update(dbc, table, id, casScope{version: &expectedVersion, statuses: allowedStatuses}, updates)
}

// RequireCASSuccess converts a failed compare-and-set into a conflict.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(message)
}

func RequireStatusAllowed(current string, allowed ...string) error {
	current = strings.TrimSpace(current)
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if strings.EqualFold(current, strings.TrimSpace(s)) {
			return nil
		}
	}
	return ConflictError("status transition not allowed from " + current)
}

func RequireVersionMatch(current, expected int) error {
	if expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if current != expected {
		return ConflictError("version mismatch")
	}
	return nil
}
