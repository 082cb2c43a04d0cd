package postgres

import (
	"context"
	"time"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/jackc/pgx/v4"
)

type pgSubmission struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgSubmission{pool: pool}
}

func (s *pgSubmission) Get(ctx context.Context, submissionId string) (domain.Submission, error) {
	sub := domain.Submission{}
	var status string
	err := s.pool.QueryRow(
		ctx,
		`
		select "id", "team", "status", "status_message", "submitted_at", "version"
		from "submission" where "id" = $1
		`,
		submissionId,
	).Scan(&sub.Id, &sub.Team, &status, &sub.StatusMessage, &sub.SubmittedAt, &sub.Version)
	if err == pgx.ErrNoRows {
		return domain.Submission{}, xe.WrapWithNote("submission "+submissionId, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Submission{}, xe.Wrap(err)
	}

	sub.Status, err = domain.AsSubmissionStatus(status)
	if err != nil {
		return domain.Submission{}, xe.Wrap(err)
	}
	return sub, nil
}

func (s *pgSubmission) UpdateStatus(ctx context.Context, submission domain.Submission, status domain.SubmissionStatus, message string) error {
	tag, err := s.pool.Exec(
		ctx,
		`
		update "submission"
		set "status" = $1, "status_message" = $2, "version" = "version" + 1
		where "id" = $3 and "version" = $4
		`,
		string(status), message, submission.Id, submission.Version,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return xe.WrapWithNote("submission "+submission.Id, domain.ErrVersionConflict)
	}
	return nil
}

func (s *pgSubmission) UpdateStatusMessage(ctx context.Context, submission domain.Submission, message string) error {
	tag, err := s.pool.Exec(
		ctx,
		`
		update "submission"
		set "status_message" = $1, "version" = "version" + 1
		where "id" = $2 and "version" = $3
		`,
		message, submission.Id, submission.Version,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return xe.WrapWithNote("submission "+submission.Id, domain.ErrVersionConflict)
	}
	return nil
}

func (s *pgSubmission) ListUnfinishedOlderThan(ctx context.Context, submittedBefore time.Time) ([]domain.Submission, error) {
	rows, err := s.pool.Query(
		ctx,
		`
		select "id", "team", "status", "status_message", "submitted_at", "version"
		from "submission"
		where "submitted_at" < $1 and "status" in ('Submitted', 'Processing')
		order by "submitted_at"
		`,
		submittedBefore,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	subs := []domain.Submission{}
	for rows.Next() {
		sub := domain.Submission{}
		var status string
		if err := rows.Scan(&sub.Id, &sub.Team, &status, &sub.StatusMessage, &sub.SubmittedAt, &sub.Version); err != nil {
			return nil, xe.Wrap(err)
		}
		sub.Status, err = domain.AsSubmissionStatus(status)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return subs, nil
}
