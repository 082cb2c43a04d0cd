package postgres

import (
	"context"
	"encoding/json"
	"time"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/accession/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/jackc/pgtype"
)

type pgAccession struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgAccession{pool: pool}
}

func (p *pgAccession) Absorb(ctx context.Context, submissionId string, apply func(*domain.AccessionIdWrapper)) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	// create-if-absent, then lock. The insert is a no-op when the wrapper
	// already exists; the select for update serializes concurrent certificates
	// for the same submission.
	if _, err := tx.Exec(
		ctx,
		`
		insert into "accession_id_wrapper" ("submission_id")
		values ($1) on conflict ("submission_id") do nothing
		`,
		submissionId,
	); err != nil {
		return xe.Wrap(err)
	}

	w := domain.AccessionIdWrapper{}
	accessions := pgtype.JSONB{}
	if err := tx.QueryRow(
		ctx,
		`
		select "submission_id", "biostudies_accession", "biosamples_accessions",
		       "message_sent_at", "version"
		from "accession_id_wrapper" where "submission_id" = $1 for update
		`,
		submissionId,
	).Scan(&w.SubmissionId, &w.BioStudiesAccession, &accessions, &w.MessageSentAt, &w.Version); err != nil {
		return xe.Wrap(err)
	}
	if accessions.Status == pgtype.Present {
		if err := json.Unmarshal(accessions.Bytes, &w.BioSamplesAccessions); err != nil {
			return xe.Wrap(err)
		}
	}

	apply(&w)

	encoded, err := json.Marshal(w.BioSamplesAccessions)
	if err != nil {
		return xe.Wrap(err)
	}
	if w.BioSamplesAccessions == nil {
		encoded = []byte("[]")
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "accession_id_wrapper"
		set "biostudies_accession" = $1, "biosamples_accessions" = $2,
		    "version" = "version" + 1
		where "submission_id" = $3
		`,
		w.BioStudiesAccession, encoded, submissionId,
	); err != nil {
		return xe.Wrap(err)
	}

	return xe.Wrap(tx.Commit(ctx))
}

func (p *pgAccession) PopReadyToPublish(ctx context.Context, callback func(domain.AccessionIdWrapper) error) (bool, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	w := domain.AccessionIdWrapper{}
	accessions := pgtype.JSONB{}
	pop := false

	rows, err := tx.Query(
		ctx,
		`
		select "submission_id", "biostudies_accession", "biosamples_accessions", "version"
		from "accession_id_wrapper"
		where "message_sent_at" is null
		  and "biostudies_accession" <> ''
		  and "biosamples_accessions" <> '[]'::jsonb
		limit 1 for update skip locked
		`,
	)
	if err != nil {
		return false, xe.Wrap(err)
	}
	for rows.Next() {
		if err := rows.Scan(&w.SubmissionId, &w.BioStudiesAccession, &accessions, &w.Version); err != nil {
			rows.Close()
			return false, xe.Wrap(err)
		}
		pop = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, xe.Wrap(err)
	}
	if !pop {
		return false, nil
	}

	if accessions.Status == pgtype.Present {
		if err := json.Unmarshal(accessions.Bytes, &w.BioSamplesAccessions); err != nil {
			return false, xe.Wrap(err)
		}
	}

	// publish and stamp in one transaction. If the callback fails, the stamp
	// rolls back and the wrapper is picked up again by a later sweep.
	if callback != nil {
		if err := callback(w); err != nil {
			return false, xe.Wrap(err)
		}
	}

	now := time.Now()
	if _, err := tx.Exec(
		ctx,
		`
		update "accession_id_wrapper"
		set "message_sent_at" = $1, "version" = "version" + 1
		where "submission_id" = $2
		`,
		now, w.SubmissionId,
	); err != nil {
		return false, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, xe.Wrap(err)
	}
	return true, nil
}
