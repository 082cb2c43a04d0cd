package postgres

import (
	"context"
	"errors"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/slices"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
)

type pgStatus struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgStatus{pool: pool}
}

func (p *pgStatus) GetBySubmittableId(ctx context.Context, submittableId string) (*domain.ProcessingStatus, error) {
	ps := domain.ProcessingStatus{}
	var kind, state string
	var archive *string
	err := p.pool.QueryRow(
		ctx,
		`
		select "submittable_id", "submission_id", "kind", "archive", "accession",
		       "state", "message", "last_modified_by", "last_modified", "version"
		from "processing_status" where "submittable_id" = $1
		`,
		submittableId,
	).Scan(
		&ps.SubmittableId, &ps.SubmissionId, &kind, &archive, &ps.Accession,
		&state, &ps.Message, &ps.LastModifiedBy, &ps.LastModified, &ps.Version,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, xe.Wrap(err)
	}

	if ps.Kind, err = domain.AsSubmittableKind(kind); err != nil {
		return nil, xe.Wrap(err)
	}
	if ps.State, err = domain.AsProcessingState(state); err != nil {
		return nil, xe.Wrap(err)
	}
	if archive != nil {
		a, err := domain.AsArchive(*archive)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		ps.Archive = &a
	}
	return &ps, nil
}

func (p *pgStatus) Save(ctx context.Context, status domain.ProcessingStatus) error {
	var archive *string
	if status.Archive != nil {
		archive = (*string)(status.Archive)
	}

	if status.Version == 0 {
		_, err := p.pool.Exec(
			ctx,
			`
			insert into "processing_status"
			("submittable_id", "submission_id", "kind", "archive", "accession",
			 "state", "message", "last_modified_by", "last_modified", "version")
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
			`,
			status.SubmittableId, status.SubmissionId, string(status.Kind), archive,
			status.Accession, string(status.State), status.Message,
			status.LastModifiedBy, status.LastModified,
		)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// someone inserted the record first; the caller re-reads and retries.
			return xe.WrapWithNote("processing status "+status.SubmittableId, domain.ErrVersionConflict)
		}
		return xe.Wrap(err)
	}

	tag, err := p.pool.Exec(
		ctx,
		`
		update "processing_status"
		set "archive" = $1, "accession" = $2, "state" = $3, "message" = $4,
		    "last_modified_by" = $5, "last_modified" = $6, "version" = "version" + 1
		where "submittable_id" = $7 and "version" = $8
		`,
		archive, status.Accession, string(status.State), status.Message,
		status.LastModifiedBy, status.LastModified,
		status.SubmittableId, status.Version,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return xe.WrapWithNote("processing status "+status.SubmittableId, domain.ErrVersionConflict)
	}
	return nil
}

func (p *pgStatus) SetArchive(ctx context.Context, submittableId string, archive domain.Archive) error {
	tag, err := p.pool.Exec(
		ctx,
		`
		update "processing_status"
		set "archive" = $1, "version" = "version" + 1
		where "submittable_id" = $2
		`,
		string(archive), submittableId,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return xe.WrapWithNote("processing status "+submittableId, domain.ErrNotFound)
	}
	return nil
}

func (p *pgStatus) Summary(ctx context.Context, submissionId string) (map[domain.ProcessingState]int, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select "state", count(*) from "processing_status"
		where "submission_id" = $1 group by "state"
		`,
		submissionId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	summary := map[domain.ProcessingState]int{}
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, xe.Wrap(err)
		}
		s, err := domain.AsProcessingState(state)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		summary[s] = count
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return summary, nil
}

func (p *pgStatus) IdsByKindInStates(ctx context.Context, submissionId string, states []domain.ProcessingState) (map[domain.SubmittableKind][]string, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select "kind", "submittable_id" from "processing_status"
		where "submission_id" = $1 and "state" = any($2)
		order by "submittable_id"
		`,
		submissionId,
		slices.Map(states, domain.ProcessingState.String),
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	byKind := map[domain.SubmittableKind][]string{}
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, xe.Wrap(err)
		}
		k, err := domain.AsSubmittableKind(kind)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		byKind[k] = append(byKind[k], id)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return byKind, nil
}

func (p *pgStatus) TransitionAll(ctx context.Context, submittableIds []string, to domain.ProcessingState, allowedFrom []domain.ProcessingState) (int, error) {
	if len(submittableIds) == 0 {
		return 0, nil
	}
	tag, err := p.pool.Exec(
		ctx,
		`
		update "processing_status"
		set "state" = $1, "last_modified" = now(), "version" = "version" + 1
		where "submittable_id" = any($2) and "state" = any($3)
		`,
		string(to),
		submittableIds,
		slices.Map(allowedFrom, domain.ProcessingState.String),
	)
	if err != nil {
		return 0, xe.Wrap(err)
	}
	return int(tag.RowsAffected()), nil
}
