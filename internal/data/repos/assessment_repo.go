package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
)

// AssessmentRepository persists risk assessments. Assessments are
// append-only history: rescoring a subject adds a row, so score drift over
// time stays queryable.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates an assessment repository over the shared
// pool.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// SaveAssessment appends one assessment row.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, a *contracts.RiskAssessment) error {
	detailJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	query := `
		INSERT INTO radar.assessments (
			subject, as_of, final_score, level, floor_applied, detail
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query,
		a.Subject, a.AsOf, a.FinalScore, string(a.Level), a.FloorApplied, detailJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	return nil
}

// GetLatestAssessment retrieves the most recent assessment for a subject.
func (r *AssessmentRepository) GetLatestAssessment(ctx context.Context, subject string) (*contracts.RiskAssessment, error) {
	query := `
		SELECT detail
		FROM radar.assessments
		WHERE subject = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	var detailJSON []byte
	err := r.pool.QueryRow(ctx, query, subject).Scan(&detailJSON)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no assessment for subject %s", subject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	var assessment contracts.RiskAssessment
	if err := json.Unmarshal(detailJSON, &assessment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}

	return &assessment, nil
}

// ListAssessments returns a subject's assessment history since a time,
// newest first.
func (r *AssessmentRepository) ListAssessments(ctx context.Context, subject string, since time.Time) ([]contracts.RiskAssessment, error) {
	query := `
		SELECT detail
		FROM radar.assessments
		WHERE subject = $1 AND as_of >= $2
		ORDER BY as_of DESC
	`

	rows, err := r.pool.Query(ctx, query, subject, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var assessments []contracts.RiskAssessment
	for rows.Next() {
		var detailJSON []byte
		if err := rows.Scan(&detailJSON); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}

		var a contracts.RiskAssessment
		if err := json.Unmarshal(detailJSON, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}
