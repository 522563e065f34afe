package model

import "time"

type Invite struct {
	ID          string       `db:"id" json:"id"`
	CandidateID string       `db:"candidate_id" json:"candidateId"`
	JobID       string       `db:"job_id" json:"jobId"`
	Code        string       `db:"invite_code" json:"-"`
	Status      InviteStatus `db:"status" json:"status"`
	ExpiresAt   time.Time    `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// Expired reports whether the interview window closed before now.
func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type Job struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type Candidate struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	ResumeText *string   `db:"resume_text" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
