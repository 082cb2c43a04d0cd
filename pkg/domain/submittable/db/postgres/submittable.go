package postgres

import (
	"context"
	"encoding/json"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

type pgSubmittable struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgSubmittable{pool: pool}
}

const submittableColumns = `"id", "kind", "alias", "submission_id", "data_type", "accession", "refs", "document"`

func scanSubmittable(row pgx.Row) (domain.Submittable, error) {
	s := domain.Submittable{}
	var kind string
	refs := pgtype.JSONB{}
	document := pgtype.JSONB{}
	if err := row.Scan(&s.Id, &kind, &s.Alias, &s.SubmissionId, &s.DataType, &s.Accession, &refs, &document); err != nil {
		return domain.Submittable{}, err
	}

	var err error
	s.Kind, err = domain.AsSubmittableKind(kind)
	if err != nil {
		return domain.Submittable{}, err
	}
	if refs.Status == pgtype.Present {
		if err := json.Unmarshal(refs.Bytes, &s.Refs); err != nil {
			return domain.Submittable{}, err
		}
	}
	if document.Status == pgtype.Present {
		s.Document = json.RawMessage(document.Bytes)
	}
	return s, nil
}

func (p *pgSubmittable) Get(ctx context.Context, submittableId string) (domain.Submittable, error) {
	s, err := scanSubmittable(p.pool.QueryRow(
		ctx,
		`select `+submittableColumns+` from "submittable" where "id" = $1`,
		submittableId,
	))
	if err == pgx.ErrNoRows {
		return domain.Submittable{}, xe.WrapWithNote("submittable "+submittableId, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Submittable{}, xe.Wrap(err)
	}
	return s, nil
}

func (p *pgSubmittable) BySubmission(ctx context.Context, submissionId string) ([]domain.Submittable, error) {
	rows, err := p.pool.Query(
		ctx,
		`select `+submittableColumns+` from "submittable" where "submission_id" = $1 order by "id"`,
		submissionId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	subs := []domain.Submittable{}
	for rows.Next() {
		s, err := scanSubmittable(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return subs, nil
}

func (p *pgSubmittable) LookupRef(ctx context.Context, ref domain.Ref) (*domain.Submittable, error) {
	if ref.Empty() {
		return nil, nil
	}

	var row pgx.Row
	if ref.Accessioned() {
		row = p.pool.QueryRow(
			ctx,
			`select `+submittableColumns+` from "submittable" where "accession" = $1 limit 1`,
			ref.Accession,
		)
	} else {
		// latest wins when an alias has been resubmitted
		row = p.pool.QueryRow(
			ctx,
			`
			select `+submittableColumns+` from "submittable"
			where "kind" = $1 and "alias" = $2
			order by "id" desc limit 1
			`,
			string(ref.Kind), ref.Alias,
		)
	}

	s, err := scanSubmittable(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return &s, nil
}
