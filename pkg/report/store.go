package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// Store persists run reports and the accumulated edge set.
type Store interface {
	// SaveReport persists a finished report and makes it the latest.
	SaveReport(ctx context.Context, r *Report) error

	// LoadLatest returns the most recently saved report, or a NOT_FOUND
	// error when nothing was saved yet.
	LoadLatest(ctx context.Context) (*Report, error)

	// UpsertEdges merges edges into the stored set, keyed by 4-tuple.
	UpsertEdges(ctx context.Context, edges []Edge) error

	// Edges returns the stored edge set sorted by cell ID.
	Edges(ctx context.Context) ([]Edge, error)

	// Close releases any underlying connections.
	Close(ctx context.Context) error
}

// FileStore persists reports as JSON files under a state directory:
// one file per run, a latest pointer, and a merged edges file. Writes
// go through a temp file and rename so readers never see partial JSON.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "runs"), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "creating state dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// SaveReport implements Store.
func (s *FileStore) SaveReport(ctx context.Context, r *Report) error {
	if err := s.writeJSON(filepath.Join(s.dir, "runs", r.RunID+".json"), r); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.dir, "latest.json"), r)
}

// LoadLatest implements Store.
func (s *FileStore) LoadLatest(ctx context.Context) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "latest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "no report saved yet")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading latest report")
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decoding latest report")
	}
	return &r, nil
}

// UpsertEdges implements Store.
func (s *FileStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	existing, err := s.Edges(ctx)
	if err != nil {
		return err
	}
	merged := make(map[string]Edge, len(existing)+len(edges))
	for _, e := range existing {
		merged[edgeKey(e)] = e
	}
	for _, e := range edges {
		merged[edgeKey(e)] = e
	}

	out := make([]Edge, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sortEdges(out)
	return s.writeJSON(filepath.Join(s.dir, "edges.json"), out)
}

// Edges implements Store.
func (s *FileStore) Edges(ctx context.Context) ([]Edge, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "edges.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading edges")
	}
	var edges []Edge
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decoding edges")
	}
	sortEdges(edges)
	return edges, nil
}

// Close implements Store.
func (s *FileStore) Close(ctx context.Context) error { return nil }

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding %s", filepath.Base(path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", filepath.Base(path))
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", filepath.Base(path))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", filepath.Base(path))
	}
	return nil
}

func edgeKey(e Edge) string {
	return e.ClientLang + "@" + e.ClientVersion + "->" + e.ServerLang + "@" + e.ServerVersion
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].CellID < edges[j].CellID })
}
