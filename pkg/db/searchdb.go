// SQLite storage for search hits, reference cluster assignments, and
// per-cluster weights.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nhoffman/deenurp/pkg/seqio"
)

const schema = `
CREATE TABLE params (
    key TEXT PRIMARY KEY,
    val TEXT
);

CREATE TABLE sequences (
    sequence_id INTEGER PRIMARY KEY,
    name        TEXT UNIQUE NOT NULL,
    weight      REAL NOT NULL DEFAULT 1.0,
    length      INTEGER
);

CREATE TABLE ref_seqs (
    ref_id       INTEGER PRIMARY KEY,
    name         TEXT UNIQUE NOT NULL,
    cluster_name TEXT NOT NULL
);

CREATE INDEX ix_ref_seqs_cluster_name ON ref_seqs (cluster_name);

CREATE TABLE best_hits (
    hit_id      INTEGER PRIMARY KEY,
    sequence_id INTEGER NOT NULL REFERENCES sequences (sequence_id),
    hit_idx     INTEGER NOT NULL,
    ref_id      INTEGER NOT NULL REFERENCES ref_seqs (ref_id),
    pct_id      REAL NOT NULL
);

CREATE INDEX ix_best_hits_sequence_id ON best_hits (sequence_id);

CREATE VIEW vw_cluster_weights AS
SELECT cluster_name, SUM(weight) AS total_weight
FROM sequences
     JOIN (SELECT DISTINCT sequence_id, cluster_name
           FROM best_hits
                JOIN ref_seqs USING (ref_id)) hits USING (sequence_id)
GROUP BY cluster_name;
`

// RefSeq is one reference sequence's cluster assignment.
type RefSeq struct {
	Name        string
	ClusterName string
}

// Hit is one search hit of a query against a reference.
type Hit struct {
	QueryName string
	RefName   string
	HitIdx    int
	PctID     float64
}

// ClusterWeight is a cluster's summed query weight.
type ClusterWeight struct {
	Name        string
	TotalWeight float64
}

// SeqWeight is a query sequence name with its weight.
type SeqWeight struct {
	Name   string
	Weight float64
}

// SearchDB wraps the search-hit database.
type SearchDB struct {
	sql *sql.DB
}

// Open opens (creating if absent) the database at path.
func Open(path string) (*SearchDB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return &SearchDB{sql: handle}, nil
}

func (d *SearchDB) Close() error {
	return d.sql.Close()
}

// Create initializes the schema on a fresh database.
func (d *SearchDB) Create(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SetParams stores run parameters, replacing existing keys.
func (d *SearchDB) SetParams(ctx context.Context, params map[string]string) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stm, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO params (key, val) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stm.Close()

	for key, val := range params {
		if _, err := stm.ExecContext(ctx, key, val); err != nil {
			return fmt.Errorf("failed to store param %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Params returns all stored run parameters.
func (d *SearchDB) Params(ctx context.Context) (map[string]string, error) {
	qstring := `SELECT key, val FROM params`

	rows, err := d.sql.QueryContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	params := make(map[string]string)
	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return nil, err
		}
		params[key] = val
	}
	return params, rows.Err()
}

// InsertRefSeqs stores reference cluster assignments.
func (d *SearchDB) InsertRefSeqs(ctx context.Context, refs []RefSeq) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stm, err := tx.PrepareContext(ctx, `INSERT INTO ref_seqs (name, cluster_name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stm.Close()

	for _, ref := range refs {
		if _, err := stm.ExecContext(ctx, ref.Name, ref.ClusterName); err != nil {
			return fmt.Errorf("failed to insert ref %s: %w", ref.Name, err)
		}
	}
	return tx.Commit()
}

// InsertSequences stores query sequences with their weights.
func (d *SearchDB) InsertSequences(ctx context.Context, seqs []seqio.Sequence) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stm, err := tx.PrepareContext(ctx, `INSERT INTO sequences (name, weight, length) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stm.Close()

	for _, s := range seqs {
		if _, err := stm.ExecContext(ctx, s.Name, s.Weight(), s.Len()); err != nil {
			return fmt.Errorf("failed to insert sequence %s: %w", s.Name, err)
		}
	}
	return tx.Commit()
}

// InsertBestHits stores search hits, resolving names to ids. A hit naming
// an unknown query or reference is an error.
func (d *SearchDB) InsertBestHits(ctx context.Context, hits []Hit) error {
	seqIDs, err := d.nameIDs(ctx, `SELECT name, sequence_id FROM sequences`)
	if err != nil {
		return err
	}
	refIDs, err := d.nameIDs(ctx, `SELECT name, ref_id FROM ref_seqs`)
	if err != nil {
		return err
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stm, err := tx.PrepareContext(ctx,
		`INSERT INTO best_hits (sequence_id, hit_idx, ref_id, pct_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stm.Close()

	for _, hit := range hits {
		seqID, ok := seqIDs[hit.QueryName]
		if !ok {
			return fmt.Errorf("hit names unknown query sequence %q", hit.QueryName)
		}
		refID, ok := refIDs[hit.RefName]
		if !ok {
			return fmt.Errorf("hit names unknown reference %q", hit.RefName)
		}
		if _, err := stm.ExecContext(ctx, seqID, hit.HitIdx, refID, hit.PctID); err != nil {
			return fmt.Errorf("failed to insert hit %s -> %s: %w", hit.QueryName, hit.RefName, err)
		}
	}
	return tx.Commit()
}

func (d *SearchDB) nameIDs(ctx context.Context, qstring string) (map[string]int64, error) {
	rows, err := d.sql.QueryContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// TotalWeight sums every query sequence's weight. An empty sequences
// table is an error: weight shares would be undefined.
func (d *SearchDB) TotalWeight(ctx context.Context) (float64, error) {
	qstring := `SELECT SUM(weight) FROM sequences`

	var total sql.NullFloat64
	if err := d.sql.QueryRowContext(ctx, qstring).Scan(&total); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, errors.New("database contains no weighted sequences")
	}
	return total.Float64, nil
}

// ClusterWeights returns clusters ordered by descending total weight.
func (d *SearchDB) ClusterWeights(ctx context.Context) ([]ClusterWeight, error) {
	qstring := `SELECT cluster_name, total_weight
        FROM vw_cluster_weights
        ORDER BY total_weight DESC`

	stm, err := d.sql.PrepareContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weights []ClusterWeight
	for rows.Next() {
		var cw ClusterWeight
		if err := rows.Scan(&cw.Name, &cw.TotalWeight); err != nil {
			return nil, err
		}
		weights = append(weights, cw)
	}
	return weights, rows.Err()
}

// ClusterHitSeqs returns the distinct query sequences hitting the named
// cluster, with weights, in query order.
func (d *SearchDB) ClusterHitSeqs(ctx context.Context, clusterName string) ([]SeqWeight, error) {
	qstring := `SELECT DISTINCT sequences.name, weight
        FROM sequences
        INNER JOIN best_hits USING (sequence_id)
        INNER JOIN ref_seqs USING (ref_id)
        WHERE cluster_name = ?`

	stm, err := d.sql.PrepareContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seqs []SeqWeight
	for rows.Next() {
		var sw SeqWeight
		if err := rows.Scan(&sw.Name, &sw.Weight); err != nil {
			return nil, err
		}
		seqs = append(seqs, sw)
	}
	return seqs, rows.Err()
}
