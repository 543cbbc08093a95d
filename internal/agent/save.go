package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"elga/internal/catalog"
)

// saveToDisk writes one "<vertex> <result>\n" line per owned vertex to
// <SaveDir>/<endpoint-serial>.out (§6 "Persisted state"), and, if
// a catalog is configured, records the event alongside it.
func (a *Agent) saveToDisk() {
	if a.cfg.SaveDir == "" {
		a.Log.Printf("save requested with no SAVE_DIR configured, skipping")
		return
	}
	if err := os.MkdirAll(a.cfg.SaveDir, 0o755); err != nil {
		a.Log.Printf("save: mkdir %s: %v", a.cfg.SaveDir, err)
		return
	}

	name := fmt.Sprintf("%d.out", a.Self.Serial())
	path := filepath.Join(a.cfg.SaveDir, name)

	f, err := os.Create(path)
	if err != nil {
		a.Log.Printf("save: create %s: %v", path, err)
		return
	}
	defer f.Close()

	vertices := make([]uint64, 0, len(a.vertices))
	for v := range a.vertices {
		vertices = append(vertices, v)
	}
	sort.Slice(vertices, func(i, j int) bool { return vertices[i] < vertices[j] })

	for _, v := range vertices {
		if _, err := f.WriteString(a.algo.Save(v, a.vertices[v].Local)); err != nil {
			a.Log.Printf("save: write %s: %v", path, err)
			return
		}
	}

	cat, err := catalog.Open(a.cfg.SaveDir)
	if err != nil {
		a.Log.Printf("save: catalog open: %v", err)
		return
	}
	defer cat.Close()
	if err := cat.Record(a.Self.Serial(), a.batch, "save", path, uint64(a.localNV), uint64(a.localNE)); err != nil {
		a.Log.Printf("save: catalog record: %v", err)
	}
}
