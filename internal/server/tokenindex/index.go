// Package tokenindex maps capability tokens to file records without ever
// storing a token.
//
// Each record keeps SHA-256(token || salt). Because the salt is per record,
// equal tokens on different records have unrelated fingerprints and the
// lookup has to recompute the fingerprint for every candidate.
package tokenindex

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
)

// FingerprintSize is the length of a token fingerprint.
const FingerprintSize = sha256.Size

// Fingerprint returns SHA-256(token || salt).
func Fingerprint(token cryptox.Token, salt cryptox.Salt) [FingerprintSize]byte {
	h := sha256.New()
	h.Write(token[:])
	h.Write(salt[:])

	var out [FingerprintSize]byte
	h.Sum(out[:0])
	return out
}

// CandidateSource lists the live records that a token may resolve to.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]models.Candidate, error)
}

// Index resolves tokens against a CandidateSource.
type Index struct {
	source CandidateSource
	log    logging.Logger
}

func New(source CandidateSource, log logging.Logger) *Index {
	return &Index{source: source, log: log.With("module", "tokenindex")}
}

// Resolve returns the id of the record whose fingerprint matches token, or
// common.ErrorNotFound.
//
// Every candidate is visited and compared in constant time, so the time
// taken does not depend on where (or whether) the match is.
func (i *Index) Resolve(ctx context.Context, token cryptox.Token) (string, error) {
	candidates, err := i.source.Candidates(ctx)
	if err != nil {
		return "", err
	}

	var (
		found   int
		id      string
		corrupt []string
	)
	for _, c := range candidates {
		salt, err := cryptox.SaltFromBytes(c.Salt)
		if err != nil {
			corrupt = append(corrupt, c.ID)
			continue
		}
		fp := Fingerprint(token, salt)
		eq := subtle.ConstantTimeCompare(fp[:], c.Hash)
		if eq == 1 && found == 0 {
			id = c.ID
		}
		found |= eq
	}

	if len(corrupt) > 0 {
		i.log.Warn(ctx, "skipped records with a corrupt salt", "count", len(corrupt), "file_ids", corrupt)
	}

	if found == 0 {
		return "", common.ErrorNotFound
	}
	return id, nil
}
