// Package refresolve resolves submittable references against the store.
package refresolve

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
)

// Resolver looks up the submittables references point at.
//
// It memoises lookups by reference identity, so many refs to the same thing
// (e.g. all assays pointing at one study) hit the store once. A Resolver is
// scoped to one dispatch pass and discarded afterwards; references are
// immutable within a pass, so the cache cannot go stale.
//
// Not safe for concurrent use.
type Resolver struct {
	store kdb.Interface
	cache map[string]*domain.Submittable
}

func New(store kdb.Interface) *Resolver {
	return &Resolver{
		store: store,
		cache: map[string]*domain.Submittable{},
	}
}

// Resolve returns the submittable ref points at, or nil when it cannot
// currently be found.
//
// When the target already carries an accession and the ref does not, the
// ref's accession is filled in, so downstream consumers see it without a
// second lookup.
func (r *Resolver) Resolve(ctx context.Context, ref *domain.Ref) (*domain.Submittable, error) {
	if ref.Empty() {
		return nil, nil
	}

	key := ref.Identity()
	target, hit := r.cache[key]
	if !hit {
		var err error
		target, err = r.store.LookupRef(ctx, *ref)
		if err != nil {
			return nil, err
		}
		r.cache[key] = target
	}

	if target != nil && !ref.Accessioned() && target.Accessioned() {
		ref.Accession = target.Accession
	}

	return target, nil
}
