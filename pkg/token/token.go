// Package token inspects the caller credentials travelling with envelopes.
//
// The core never validates tokens itself; archive agents and the platform's
// outer surfaces do that. It only passes them through, and warns when a token
// it is about to forward looks unusable.
package token

import (
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Inspector struct {
	logger *log.Logger
}

func NewInspector(logger *log.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect logs a warning when the token is absent, unparsable, or expired.
// It never fails: a bad token is the archive agent's problem to reject, but
// the warning makes the eventual rejection traceable to this hop.
func (i *Inspector) Inspect(token string, submissionId string) {
	if token == "" {
		i.logger.Printf("submission %s: envelope carries no credential", submissionId)
		return
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		i.logger.Printf("submission %s: envelope credential is not parsable: %s", submissionId, err)
		return
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		i.logger.Printf(
			"submission %s: envelope credential expired at %s",
			submissionId, claims.ExpiresAt.Format(time.RFC3339),
		)
	}
}
