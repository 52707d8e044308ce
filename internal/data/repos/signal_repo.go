package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
)

// SignalRepository persists validated signal sets. One row per subject,
// replaced on each rebuild: a signal set is always recomputed from scratch,
// so the previous row has no incremental value.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a signal repository over the shared pool.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// SaveSignalSet upserts the subject's signal set.
func (r *SignalRepository) SaveSignalSet(ctx context.Context, set *contracts.SignalSet) error {
	signalsJSON, err := json.Marshal(set.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	query := `
		INSERT INTO radar.signal_sets (
			subject, signals, signal_count, documents, built_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject) DO UPDATE SET
			signals = EXCLUDED.signals,
			signal_count = EXCLUDED.signal_count,
			documents = EXCLUDED.documents,
			built_at = EXCLUDED.built_at
	`

	_, err = r.pool.Exec(ctx, query,
		set.Subject, signalsJSON, set.Count(), set.Documents, set.BuiltAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save signal set: %w", err)
	}

	return nil
}

// GetSignalSet retrieves the stored set for a subject.
func (r *SignalRepository) GetSignalSet(ctx context.Context, subject string) (*contracts.SignalSet, error) {
	query := `
		SELECT subject, signals, documents, built_at
		FROM radar.signal_sets
		WHERE subject = $1
	`

	var set contracts.SignalSet
	var signalsJSON []byte

	err := r.pool.QueryRow(ctx, query, subject).Scan(
		&set.Subject, &signalsJSON, &set.Documents, &set.BuiltAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no signal set for subject %s", subject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal set: %w", err)
	}

	if err := json.Unmarshal(signalsJSON, &set.Signals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
	}

	return &set, nil
}

// ListSubjects returns every subject with a stored signal set, newest
// builds first.
func (r *SignalRepository) ListSubjects(ctx context.Context) ([]string, error) {
	query := `
		SELECT subject
		FROM radar.signal_sets
		ORDER BY built_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}

	return subjects, rows.Err()
}
