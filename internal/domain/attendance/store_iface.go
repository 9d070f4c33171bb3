package attendance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// StoreAPI is the recorder's persistence surface. Check-in races resolve at
// the unique (tenant, employee, date) constraint: the loser's insert maps to
// ErrDuplicateCheckIn. Later mutations lock the day row.
type StoreAPI interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	InsertDayTx(ctx context.Context, tx pgx.Tx, tenantID string, d Day) (string, error)
	GetDayForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID string, date time.Time) (Day, error)
	UpdateDayTx(ctx context.Context, tx pgx.Tx, tenantID string, d Day) error
	InsertEventTx(ctx context.Context, tx pgx.Tx, tenantID string, ev Event) error

	GetDay(ctx context.Context, tenantID, employeeID string, date time.Time) (Day, error)
	ListDays(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]Day, error)
	ListEvents(ctx context.Context, tenantID, dayID string) ([]Event, error)

	UpsertSummary(ctx context.Context, tenantID string, s Summary) error
	GetSummary(ctx context.Context, tenantID, employeeID string, year, month int) (Summary, error)
}
