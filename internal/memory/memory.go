// Package memory implements the workspace memory index (spec.md §4.6):
// chunk workspace markdown files, embed each chunk, and answer nearest-
// neighbor search queries by cosine similarity. Grounded on
// crates/memory/src/lib.rs from the original implementation, ported from
// rusqlite/glob to database/sql over modernc.org/sqlite (the pure-Go
// driver the teacher pack already depends on) and the standard library's
// filepath.WalkDir in place of the glob crate.
package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/gearclaw/gearclaw/internal/providers"
)

// Result is one ranked chunk returned from Search.
type Result struct {
	Path      string
	Text      string
	Score     float32
	StartLine int
}

// Index holds the sqlite-backed chunk store for one workspace.
type Index struct {
	db        *sql.DB
	workspace string
	embedder  providers.Embedder
	enabled   bool
}

// Open creates (or reuses) the sqlite database at dbPath and returns an
// Index scoped to workspace. enabled=false makes Sync and Search no-ops,
// matching the teacher's config-gated memory behavior.
func Open(dbPath, workspace string, embedder providers.Embedder, enabled bool) (*Index, error) {
	if enabled {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("memory: create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("memory: open db: %w", err)
	}
	idx := &Index{db: db, workspace: workspace, embedder: embedder, enabled: enabled}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) Close() error { return idx.db.Close() }

func (idx *Index) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			mtime INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding TEXT NOT NULL,
			start_line INTEGER
		)`,
	}
	for _, s := range stmts {
		if _, err := idx.db.Exec(s); err != nil {
			return fmt.Errorf("memory: init schema: %w", err)
		}
	}
	return nil
}

// Sync walks workspace/**/*.md, re-chunks and re-embeds any file whose
// mtime has advanced since the last sync, and drops entries for files
// that no longer exist (spec.md §4.6 "sync").
func (idx *Index) Sync(ctx context.Context) error {
	if !idx.enabled {
		return nil
	}

	current := map[string]bool{}
	var toProcess []string

	err := filepath.WalkDir(idx.workspace, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		rel, relErr := filepath.Rel(idx.workspace, path)
		if relErr != nil {
			rel = path
		}
		current[rel] = true

		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		mtime := info.ModTime().Unix()

		var oldMtime int64
		row := idx.db.QueryRowContext(ctx, "SELECT mtime FROM files WHERE path = ?", rel)
		if scanErr := row.Scan(&oldMtime); scanErr != nil || mtime > oldMtime {
			toProcess = append(toProcess, rel)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("memory: walk workspace: %w", err)
	}

	rows, err := idx.db.QueryContext(ctx, "SELECT path FROM files")
	if err != nil {
		return fmt.Errorf("memory: list indexed files: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if scanErr := rows.Scan(&p); scanErr == nil && !current[p] {
			stale = append(stale, p)
		}
	}
	rows.Close()
	for _, p := range stale {
		if _, err := idx.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", p); err != nil {
			return fmt.Errorf("memory: remove stale file: %w", err)
		}
		if _, err := idx.db.ExecContext(ctx, "DELETE FROM chunks WHERE path = ?", p); err != nil {
			return fmt.Errorf("memory: remove stale chunks: %w", err)
		}
	}

	for _, rel := range toProcess {
		if err := idx.indexFile(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) indexFile(ctx context.Context, rel string) error {
	abs := filepath.Join(idx.workspace, rel)
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("memory: read %s: %w", rel, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("memory: stat %s: %w", rel, err)
	}

	chunks := chunkText(string(content))
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memory: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE path = ?", rel); err != nil {
		return fmt.Errorf("memory: clear old chunks: %w", err)
	}

	for i, text := range chunks {
		embedding, err := idx.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("memory: embed chunk %d of %s: %w", i, rel, err)
		}
		embJSON, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("memory: marshal embedding: %w", err)
		}
		chunkID := fmt.Sprintf("%x", sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", rel, i, text))))
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (id, path, text, embedding, start_line) VALUES (?, ?, ?, ?, ?)",
			chunkID, rel, text, string(embJSON), i,
		); err != nil {
			return fmt.Errorf("memory: insert chunk: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO files (path, hash, mtime) VALUES (?, ?, ?) ON CONFLICT(path) DO UPDATE SET hash=excluded.hash, mtime=excluded.mtime",
		rel, hash, info.ModTime().Unix(),
	); err != nil {
		return fmt.Errorf("memory: upsert file record: %w", err)
	}

	return tx.Commit()
}

// chunkText splits on blank lines, matching the original's `\n\n` split
// with empty chunks discarded.
func chunkText(content string) []string {
	parts := strings.Split(content, "\n\n")
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}

// Search embeds query and returns the top-k chunks by cosine similarity
// (spec.md §4.6 "search"). Returns an empty slice, not an error, when
// memory is disabled.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if !idx.enabled {
		return nil, nil
	}
	queryEmbedding, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	rows, err := idx.db.QueryContext(ctx, "SELECT path, text, embedding, start_line FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("memory: query chunks: %w", err)
	}
	defer rows.Close()

	var scored []Result
	for rows.Next() {
		var path, text, embJSON string
		var startLine sql.NullInt64
		if err := rows.Scan(&path, &text, &embJSON, &startLine); err != nil {
			continue
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(embJSON), &embedding); err != nil {
			continue
		}
		scored = append(scored, Result{
			Path:      path,
			Text:      text,
			Score:     cosineSimilarity(queryEmbedding, embedding),
			StartLine: int(startLine.Int64),
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))
}

// RenderContext formats search results as the "Relevant Context" block
// injected into the system prompt (spec.md §4.5 step 1).
func RenderContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant Context:\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", r.Path, truncate(r.Text, 400)))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
