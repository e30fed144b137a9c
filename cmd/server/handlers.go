package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/metrics"
	"github.com/brunobiangulo/gocvot/store"
)

const (
	defaultTraceDepth = 3
	maxTraceDepth     = 10
)

// snapshot is a loaded graph with its lookup index.
type snapshot struct {
	path    string
	modTime time.Time
	graph   *graph.Graph
	index   *graph.Index
}

// snapshotCache serves the first existing path and reloads it when its
// modification time changes.
type snapshotCache struct {
	paths []string

	mu      sync.Mutex
	current *snapshot
}

func newSnapshotCache(paths ...string) *snapshotCache {
	var keep []string
	for _, p := range paths {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return &snapshotCache{paths: keep}
}

// get returns the current snapshot and whether it was (re)loaded.
func (c *snapshotCache) get() (*snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if c.current != nil && c.current.path == p && c.current.modTime.Equal(info.ModTime()) {
			return c.current, false, nil
		}
		g, err := store.LoadGraph(p)
		if err != nil {
			// Keep serving the last good snapshot.
			if c.current != nil {
				slog.Warn("server: reload failed, serving previous snapshot", "path", p, "error", err)
				return c.current, false, nil
			}
			return nil, false, err
		}
		c.current = &snapshot{path: p, modTime: info.ModTime(), graph: g, index: graph.NewIndex(g)}
		slog.Info("server: snapshot loaded", "path", p, "nodes", g.Counts().TotalNodes)
		return c.current, true, nil
	}
	return nil, false, store.ErrNotFound
}

// mirrorReader is the query side of the SQLite mirror.
type mirrorReader interface {
	NodesByType(ctx context.Context, typ string) ([]store.NodeRow, error)
	EdgesFrom(ctx context.Context, nodeID string) ([]graph.Edge, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

type handler struct {
	snapshots *snapshotCache
	mirror    mirrorReader // nil when no mirror is configured
	metrics   metrics.Recorder
}

func newHandler(c *snapshotCache, mirror mirrorReader, rec metrics.Recorder) *handler {
	return &handler{snapshots: c, mirror: mirror, metrics: metrics.OrNoop(rec)}
}

// load fetches the snapshot or writes an error response and returns nil.
func (h *handler) load(w http.ResponseWriter) *snapshot {
	snap, reloaded, err := h.snapshots.get()
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return nil
	}
	if err != nil {
		slog.Error("loading snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return nil
	}
	if reloaded {
		c := snap.graph.Counts()
		h.metrics.SetGraphSize(c.TotalNodes, c.TotalEdges)
	}
	return snap
}

// GET /cvot
func (h *handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap := h.load(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.graph)
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := h.load(w)
	if snap == nil {
		return
	}
	resp := map[string]any{
		"metadata": snap.graph.Metadata,
		"counts":   snap.graph.Counts(),
		"source":   snap.path,
	}
	if h.mirror != nil {
		st, err := h.mirror.Stats(r.Context())
		if err != nil {
			slog.Error("reading mirror stats", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read mirror")
			return
		}
		resp["mirror"] = st
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /nodes?type=error_conditions
func (h *handler) handleNodes(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	if h.mirror != nil {
		rows, err := h.mirror.NodesByType(r.Context(), typ)
		if err != nil {
			slog.Error("reading mirror nodes", "type", typ, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read mirror")
			return
		}
		nodes := make([]graph.Node, len(rows))
		for i, row := range rows {
			nodes[i] = row.Node
		}
		writeJSON(w, http.StatusOK, nodes)
		return
	}
	snap := h.load(w)
	if snap == nil {
		return
	}
	nodes := snap.graph.Nodes[typ]
	if nodes == nil {
		nodes = []graph.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

// outgoing returns a node's outgoing edges from the mirror when configured,
// else from the snapshot.
func (h *handler) outgoing(ctx context.Context, snap *snapshot, id string) ([]graph.Edge, error) {
	var (
		edges []graph.Edge
		err   error
	)
	if h.mirror != nil {
		edges, err = h.mirror.EdgesFrom(ctx, id)
	} else {
		edges = snap.index.EdgesFrom(id)
	}
	if edges == nil {
		edges = []graph.Edge{}
	}
	return edges, err
}

// GET /nodes/{id}
func (h *handler) handleNode(w http.ResponseWriter, r *http.Request) {
	snap := h.load(w)
	if snap == nil {
		return
	}
	id := r.PathValue("id")
	node, ok := snap.index.Node(id)
	if !ok {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	edges, err := h.outgoing(r.Context(), snap, id)
	if err != nil {
		slog.Error("reading outgoing edges", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read edges")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"node":     node,
		"outgoing": edges,
	})
}

// GET /nodes/{id}/trace?depth=3
func (h *handler) handleTrace(w http.ResponseWriter, r *http.Request) {
	snap := h.load(w)
	if snap == nil {
		return
	}
	depth := defaultTraceDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > maxTraceDepth {
			writeError(w, http.StatusBadRequest, "depth must be between 1 and 10")
			return
		}
		depth = d
	}
	id := r.PathValue("id")
	start, ok := snap.index.Node(id)
	if !ok {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	hops := snap.index.Trace(id, depth)
	if hops == nil {
		hops = []graph.Hop{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start": start,
		"hops":  hops,
	})
}

// GET /search?q=bus+fault&type=error_conditions
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	snap := h.load(w)
	if snap == nil {
		return
	}
	id, ok := snap.index.FindNode(r.URL.Query().Get("type"), q)
	if !ok {
		writeError(w, http.StatusNotFound, "no node matches")
		return
	}
	node, _ := snap.index.Node(id)
	writeJSON(w, http.StatusOK, node)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
