// Package cache persists per-family distance matrices and bootstrap
// consensus trees in sqlite, keyed by family id plus alignment content
// hash, so re-runs skip completed families.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/seqio"
)

// CacheDB wraps the sqlite handle. The driver is registered by the
// caller (main imports modernc.org/sqlite).
type CacheDB struct {
	db *sql.DB
}

func New(db *sql.DB) (*CacheDB, error) {
	c := &CacheDB{db: db}
	if err := c.ensureSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CacheDB) ensureSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS distance_cache (
			family_id    TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			payload      TEXT NOT NULL,
			PRIMARY KEY (family_id, content_hash)
		);
		CREATE TABLE IF NOT EXISTS consensus_cache (
			family_id    TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			payload      TEXT NOT NULL,
			PRIMARY KEY (family_id, content_hash)
		);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Hash fingerprints the alignment rows so a pruned or recomputed
// alignment never matches a stale cache entry.
func Hash(a *model.Alignment) string {
	h := sha256.New()
	for i := 0; i < a.Len(); i++ {
		r := a.Row(i)
		fmt.Fprintf(h, "%s\x00%s\x00", r.MemberID, r.Gapped)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetDistance looks up a cached matrix for the family's current
// alignment.
func (c *CacheDB) GetDistance(ctx context.Context, familyID string, a *model.Alignment) (*model.DistanceMatrix, bool, error) {
	payload, ok, err := c.get(ctx, "distance_cache", familyID, Hash(a))
	if err != nil || !ok {
		return nil, false, err
	}
	m, err := seqio.ReadPhylipDistance(strings.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// PutDistance stores a matrix under the family's current alignment hash.
func (c *CacheDB) PutDistance(ctx context.Context, familyID string, a *model.Alignment, m *model.DistanceMatrix) error {
	var b strings.Builder
	if err := seqio.FormatPhylipDistance(&b, m); err != nil {
		return err
	}
	return c.put(ctx, "distance_cache", familyID, Hash(a), b.String())
}

// GetConsensus looks up a cached bootstrap consensus tree.
func (c *CacheDB) GetConsensus(ctx context.Context, familyID string, a *model.Alignment) (*model.Tree, bool, error) {
	payload, ok, err := c.get(ctx, "consensus_cache", familyID, Hash(a))
	if err != nil || !ok {
		return nil, false, err
	}
	t, err := model.ParseNewick(strings.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// PutConsensus stores a consensus tree as newick.
func (c *CacheDB) PutConsensus(ctx context.Context, familyID string, a *model.Alignment, t *model.Tree) error {
	return c.put(ctx, "consensus_cache", familyID, Hash(a), t.Newick())
}

func (c *CacheDB) get(ctx context.Context, table, familyID, hash string) (string, bool, error) {
	qstring := fmt.Sprintf(`SELECT payload FROM %s WHERE family_id = ? AND content_hash = ?`, table)
	var payload string
	err := c.db.QueryRowContext(ctx, qstring, familyID, hash).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}

func (c *CacheDB) put(ctx context.Context, table, familyID, hash, payload string) error {
	qstring := fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (family_id, content_hash, payload) VALUES (?, ?, ?)`, table)
	_, err := c.db.ExecContext(ctx, qstring, familyID, hash, payload)
	return err
}
