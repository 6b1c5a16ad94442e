package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// ReportRepo persists group reports and their items in the evals store.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

const reportCols = `id, group_id, user_id, title, created_at, total_prompts, prompts_with_data,
	prompts_awaiting, total_evaluations_loaded, total_cost, brand_snapshot, competitors_snapshot`

func scanReport(row pgx.Row) (domain.GroupReport, error) {
	var rep domain.GroupReport
	var brand, competitors []byte
	if err := row.Scan(&rep.ID, &rep.GroupID, &rep.UserID, &rep.Title, &rep.CreatedAt,
		&rep.TotalPrompts, &rep.PromptsWithData, &rep.PromptsAwaiting,
		&rep.TotalEvaluationsLoaded, &rep.TotalCost, &brand, &competitors); err != nil {
		return domain.GroupReport{}, err
	}
	if err := json.Unmarshal(brand, &rep.BrandSnapshot); err != nil {
		return domain.GroupReport{}, fmt.Errorf("brand snapshot decode: %w", err)
	}
	if err := json.Unmarshal(competitors, &rep.CompetitorsSnapshot); err != nil {
		return domain.GroupReport{}, fmt.Errorf("competitors snapshot decode: %w", err)
	}
	return rep, nil
}

// Create inserts the report row and all its items in one transaction.
func (r *ReportRepo) Create(ctx context.Context, report domain.GroupReport, items []domain.GroupReportItem) (domain.ReportID, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("report.items", len(items)))

	brand, err := json.Marshal(report.BrandSnapshot)
	if err != nil {
		return 0, fmt.Errorf("op=reports.create: %w", err)
	}
	competitors, err := json.Marshal(report.CompetitorsSnapshot)
	if err != nil {
		return 0, fmt.Errorf("op=reports.create: %w", err)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("op=reports.create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ins := `INSERT INTO group_reports (group_id, user_id, title, total_prompts, prompts_with_data,
			prompts_awaiting, total_evaluations_loaded, total_cost, brand_snapshot, competitors_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	var id int64
	if err := tx.QueryRow(ctx, ins, report.GroupID, report.UserID, report.Title,
		report.TotalPrompts, report.PromptsWithData, report.PromptsAwaiting,
		report.TotalEvaluationsLoaded, report.TotalCost, brand, competitors).Scan(&id); err != nil {
		return 0, fmt.Errorf("op=reports.create: %w", err)
	}

	insItem := `INSERT INTO group_report_items (report_id, prompt_id, evaluation_id, status, is_fresh, amount_charged)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, it := range items {
		if _, err := tx.Exec(ctx, insItem, id, it.PromptID, it.EvaluationID, it.Status, it.IsFresh, it.AmountCharged); err != nil {
			return 0, fmt.Errorf("op=reports.create.item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("op=reports.create: %w", err)
	}
	return domain.ReportID(id), nil
}

func (r *ReportRepo) items(ctx context.Context, id domain.ReportID) ([]domain.GroupReportItem, error) {
	q := `SELECT id, report_id, prompt_id, evaluation_id, status, is_fresh, amount_charged
		FROM group_report_items WHERE report_id = $1 ORDER BY id ASC`
	rows, err := r.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.GroupReportItem
	for rows.Next() {
		var it domain.GroupReportItem
		var evalID *int64
		if err := rows.Scan(&it.ID, &it.ReportID, &it.PromptID, &evalID, &it.Status, &it.IsFresh, &it.AmountCharged); err != nil {
			return nil, err
		}
		if evalID != nil {
			eid := domain.EvaluationID(*evalID)
			it.EvaluationID = &eid
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Last returns the newest report for a group, or nil when none exists.
func (r *ReportRepo) Last(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (*domain.GroupReport, []domain.GroupReportItem, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Last")
	defer span.End()

	q := `SELECT ` + reportCols + ` FROM group_reports
		WHERE group_id = $1 AND user_id = $2 ORDER BY created_at DESC, id DESC LIMIT 1`
	rep, err := scanReport(r.Pool.QueryRow(ctx, q, groupID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("op=reports.last: %w", err)
	}
	items, err := r.items(ctx, rep.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("op=reports.last: %w", err)
	}
	return &rep, items, nil
}

// Get loads one report scoped to its owner.
func (r *ReportRepo) Get(ctx context.Context, id domain.ReportID, userID domain.UserID) (domain.GroupReport, []domain.GroupReportItem, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Get")
	defer span.End()

	q := `SELECT ` + reportCols + ` FROM group_reports WHERE id = $1 AND user_id = $2`
	rep, err := scanReport(r.Pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GroupReport{}, nil, fmt.Errorf("op=reports.get: %w", domain.ErrNotFound)
		}
		return domain.GroupReport{}, nil, fmt.Errorf("op=reports.get: %w", err)
	}
	items, err := r.items(ctx, rep.ID)
	if err != nil {
		return domain.GroupReport{}, nil, fmt.Errorf("op=reports.get: %w", err)
	}
	return rep, items, nil
}
