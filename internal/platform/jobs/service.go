package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"workforce/internal/domain/attendance"
	"workforce/internal/platform/config"
	"workforce/internal/platform/querier"
)

const (
	JobAttendanceSummary = "attendance_summary"
	JobBalanceRollover   = "balance_rollover"
)

// Summarizer is the slice of the attendance service the scheduler needs.
type Summarizer interface {
	Summarize(ctx context.Context, tenantID, employeeID string, year int, month time.Month) (attendance.Summary, error)
}

type Service struct {
	DB        querier.Querier
	Cfg       config.Config
	Summaries Summarizer
	queue     chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db querier.Querier, cfg config.Config, summaries Summarizer) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		Summaries: summaries,
		queue:     make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.SummaryRunInterval > 0 {
		go s.scheduleSummaries(ctx, s.Cfg.SummaryRunInterval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

// runJob records start and outcome in job_runs so operators can inspect
// scheduled work after the fact.
func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.TenantID, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

// scheduleSummaries periodically recomputes the current month's summary for
// every active employee. Summarize is an idempotent upsert, so overlapping
// runs are harmless.
func (s *Service) scheduleSummaries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tenants, err := s.listTenants(ctx)
			if err != nil {
				slog.Warn("summary scheduler tenant lookup failed", "err", err)
				continue
			}
			now := time.Now().UTC()
			for _, tenantID := range tenants {
				tenant := tenantID
				employees, err := s.listActiveEmployees(ctx, tenant)
				if err != nil {
					slog.Warn("summary scheduler employee lookup failed", "tenantId", tenant, "err", err)
					continue
				}
				for _, employeeID := range employees {
					emp := employeeID
					s.Enqueue(JobAttendanceSummary, tenant, func(ctx context.Context) (any, error) {
						sum, err := s.Summaries.Summarize(ctx, tenant, emp, now.Year(), now.Month())
						if err != nil {
							return map[string]any{"employeeId": emp}, err
						}
						return sum, nil
					})
				}
			}
		}
	}
}

func (s *Service) listActiveEmployees(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM employees WHERE tenant_id = $1 AND status = 'active'
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Service) listTenants(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
