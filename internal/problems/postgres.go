// internal/problems/postgres.go
package problems

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclash/codeclash/internal/models"
)

// Postgres serves problem metadata and per-language content from the
// problems / problem_code tables.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FindByTitleAndLanguage(ctx context.Context, title, language string) (*models.ProblemContent, error) {
	q := `
	SELECT title, language, description, starter_code
	FROM problem_code
	WHERE title = $1 AND language = $2
	`
	var pc models.ProblemContent
	err := p.db.QueryRow(ctx, q, title, language).Scan(
		&pc.Title,
		&pc.Language,
		&pc.Description,
		&pc.StarterCode,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query problem %q (%s): %w", title, language, err)
	}
	return &pc, nil
}

func (p *Postgres) RandomSet(ctx context.Context, n int) ([]models.Problem, error) {
	q := `
	SELECT title, difficulty
	FROM problems
	ORDER BY random()
	LIMIT $1
	`
	rows, err := p.db.Query(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("query random problem set: %w", err)
	}
	defer rows.Close()

	var set []models.Problem
	for rows.Next() {
		var pr models.Problem
		if err := rows.Scan(&pr.Title, &pr.Difficulty); err != nil {
			return nil, err
		}
		set = append(set, pr)
	}
	return set, rows.Err()
}
