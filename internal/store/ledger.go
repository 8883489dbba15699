package store

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
)

// Build is one recorded compile run.
type Build struct {
	ID          string
	Seq         int64
	Hash        string
	StartedAt   time.Time
	ToolVersion string
	IRVersion   string
}

// ArtifactRecord is one file written by a build.
type ArtifactRecord struct {
	BuildID     string
	Path        string
	Source      string
	SourceHash  string
	ContentHash string
}

// RecordBuild stores a build and its artifacts in one transaction. The
// build's seq is one past the highest recorded seq; its hash covers the
// artifact paths and content hashes.
//
// BuildID on the given records is ignored and set to the new build's ID.
func (s *Store) RecordBuild(ctx context.Context, artifacts []ArtifactRecord) (Build, error) {
	if len(artifacts) == 0 {
		return Build{}, errors.New("record build: no artifacts")
	}

	hashes := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		if _, dup := hashes[a.Path]; dup {
			return Build{}, errors.Newf("record build: artifact %s listed twice", a.Path)
		}
		hashes[a.Path] = a.ContentHash
	}
	buildHash, err := ir.BuildHash(hashes)
	if err != nil {
		return Build{}, errors.Wrap(err, "record build")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, errors.Wrap(err, "record build: begin tx")
	}
	defer tx.Rollback() // No-op if committed

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM builds`).Scan(&last); err != nil {
		return Build{}, errors.Wrap(err, "record build: read seq")
	}

	b := Build{
		ID:          s.ids.Generate(),
		Seq:         last + 1,
		Hash:        buildHash,
		StartedAt:   s.clock.Now().UTC(),
		ToolVersion: ir.CompilerVersion,
		IRVersion:   ir.IRVersion,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, seq, build_hash, started_at, tool_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.Seq,
		b.Hash,
		b.StartedAt.Format(time.RFC3339Nano),
		b.ToolVersion,
		b.IRVersion,
	)
	if err != nil {
		return Build{}, errors.Wrap(err, "record build: insert build")
	}

	sorted := slices.Clone(artifacts)
	slices.SortFunc(sorted, func(x, y ArtifactRecord) int { return strings.Compare(x.Path, y.Path) })
	for _, a := range sorted {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts
			(build_id, path, source, source_hash, content_hash)
			VALUES (?, ?, ?, ?, ?)
		`, b.ID, a.Path, a.Source, a.SourceHash, a.ContentHash)
		if err != nil {
			return Build{}, errors.Wrapf(err, "record build: insert artifact %s", a.Path)
		}
	}

	if err := tx.Commit(); err != nil {
		return Build{}, errors.Wrap(err, "record build: commit")
	}
	return b, nil
}

// LatestArtifact returns the most recent record for path. found is false
// when no build has written it.
func (s *Store) LatestArtifact(ctx context.Context, path string) (rec ArtifactRecord, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.build_id, a.path, a.source, a.source_hash, a.content_hash
		FROM artifacts a
		JOIN builds b ON b.id = a.build_id
		WHERE a.path = ?
		ORDER BY b.seq DESC, b.id DESC COLLATE BINARY
		LIMIT 1
	`, path)
	rec, err = scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ArtifactRecord{}, false, nil
	}
	if err != nil {
		return ArtifactRecord{}, false, errors.Wrapf(err, "read artifact %s", path)
	}
	return rec, true, nil
}

// Unchanged reports whether the latest recorded content hash of path equals
// contentHash.
func (s *Store) Unchanged(ctx context.Context, path, contentHash string) (bool, error) {
	rec, found, err := s.LatestArtifact(ctx, path)
	if err != nil || !found {
		return false, err
	}
	return rec.ContentHash == contentHash, nil
}

// ReadBuilds returns every build, oldest first.
func (s *Store) ReadBuilds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, build_hash, started_at, tool_version, ir_version
		FROM builds
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, errors.Wrap(err, "read builds")
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var started string
		if err := rows.Scan(&b.ID, &b.Seq, &b.Hash, &started, &b.ToolVersion, &b.IRVersion); err != nil {
			return nil, errors.Wrap(err, "read builds: scan")
		}
		if b.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.Wrapf(err, "read builds: build %s has invalid time", b.ID)
		}
		builds = append(builds, b)
	}
	return builds, errors.Wrap(rows.Err(), "read builds")
}

// ReadArtifacts returns the artifacts of one build in path order.
func (s *Store) ReadArtifacts(ctx context.Context, buildID string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT build_id, path, source, source_hash, content_hash
		FROM artifacts
		WHERE build_id = ?
		ORDER BY path ASC COLLATE BINARY
	`, buildID)
	if err != nil {
		return nil, errors.Wrapf(err, "read artifacts of %s", buildID)
	}
	defer rows.Close()

	var out []ArtifactRecord
	for rows.Next() {
		rec, err := scanArtifact(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "read artifacts of %s", buildID)
		}
		out = append(out, rec)
	}
	return out, errors.Wrapf(rows.Err(), "read artifacts of %s", buildID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (ArtifactRecord, error) {
	var a ArtifactRecord
	err := row.Scan(&a.BuildID, &a.Path, &a.Source, &a.SourceHash, &a.ContentHash)
	return a, err
}
