package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/interview-server-go/internal/model"
)

// ProfileRepository reads the job and candidate records an invite points at.
// Both are managed elsewhere; the interview only consumes them.
type ProfileRepository interface {
	FindJob(ctx context.Context, id string) (*model.Job, error)
	FindCandidate(ctx context.Context, id string) (*model.Candidate, error)
}

type profileRepo struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) FindJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.GetContext(ctx, &job, `SELECT id, title, description, created_at FROM jobs WHERE id = $1`, id)
	return HandleNotFound(&job, err)
}

func (r *profileRepo) FindCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	var candidate model.Candidate
	err := r.db.GetContext(ctx, &candidate, `
		SELECT id, name, email, resume_text, created_at FROM candidates WHERE id = $1
	`, id)
	return HandleNotFound(&candidate, err)
}
