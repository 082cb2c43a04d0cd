package postgres

import (
	"context"
	"time"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/lease/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
)

type pgLease struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgLease{pool: pool}
}

func (p *pgLease) Acquire(ctx context.Context, submissionId string, holder string, ttl time.Duration) (bool, error) {
	// take the lease when it is free, expired, or already ours.
	tag, err := p.pool.Exec(
		ctx,
		`
		insert into "dispatch_lease" ("submission_id", "holder", "expires_at")
		values ($1, $2, now() + $3)
		on conflict ("submission_id") do update
		set "holder" = excluded."holder", "expires_at" = excluded."expires_at"
		where "dispatch_lease"."expires_at" < now()
		   or "dispatch_lease"."holder" = excluded."holder"
		`,
		submissionId, holder, ttl,
	)
	if err != nil {
		return false, xe.Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *pgLease) Release(ctx context.Context, submissionId string, holder string) error {
	_, err := p.pool.Exec(
		ctx,
		`delete from "dispatch_lease" where "submission_id" = $1 and "holder" = $2`,
		submissionId, holder,
	)
	return xe.Wrap(err)
}
