package postgres

import (
	"context"
	"encoding/json"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/jackc/pgtype"
)

type pgSupporting struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgSupporting{pool: pool}
}

func (p *pgSupporting) Save(ctx context.Context, submissionId string, samples []domain.Submittable) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	for _, sample := range samples {
		var document []byte
		if sample.Document != nil {
			document = []byte(sample.Document)
		}
		if _, err := tx.Exec(
			ctx,
			`
			insert into "supporting_sample" ("submission_id", "alias", "accession", "document")
			values ($1, $2, $3, $4)
			on conflict ("submission_id", "alias", "accession")
			do update set "document" = excluded."document"
			`,
			submissionId, sample.Alias, sample.Accession, document,
		); err != nil {
			return xe.Wrap(err)
		}
	}

	return xe.Wrap(tx.Commit(ctx))
}

func (p *pgSupporting) BySubmission(ctx context.Context, submissionId string) ([]domain.Submittable, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select "alias", "accession", "document" from "supporting_sample"
		where "submission_id" = $1
		`,
		submissionId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	samples := []domain.Submittable{}
	for rows.Next() {
		s := domain.Submittable{Kind: domain.KindSample, SubmissionId: submissionId}
		document := pgtype.JSONB{}
		if err := rows.Scan(&s.Alias, &s.Accession, &document); err != nil {
			return nil, xe.Wrap(err)
		}
		if document.Status == pgtype.Present {
			s.Document = json.RawMessage(document.Bytes)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return samples, nil
}
