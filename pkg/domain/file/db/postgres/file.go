package postgres

import (
	"context"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/file/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
)

type pgFile struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgFile{pool: pool}
}

func (p *pgFile) BySubmission(ctx context.Context, submissionId string) ([]domain.File, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select "submission_id", "filename", "target_path", "total_size", "checksum"
		from "uploaded_file" where "submission_id" = $1
		`,
		submissionId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	files := []domain.File{}
	for rows.Next() {
		f := domain.File{}
		if err := rows.Scan(&f.SubmissionId, &f.Filename, &f.TargetPath, &f.TotalSize, &f.Checksum); err != nil {
			return nil, xe.Wrap(err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return files, nil
}
