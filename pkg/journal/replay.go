package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	derrors "github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
)

// Replayer applies records to one in-memory host per surface.
//
// The completed ops of a failed record are replayed. An op that failed
// part-way left the original host in a state the record does not describe,
// so the surface is marked degraded and its next resync or teardown is
// replayed by removing everything the replay tracks.
type Replayer struct {
	logger   *slog.Logger
	surfaces map[string]*replayed
	records  int
	failed   int
}

type replayed struct {
	host     *memhost.Host
	patcher  *patch.Patcher
	seq      uint64
	degraded bool
}

// NewReplayer creates an empty Replayer.
func NewReplayer(logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default().With("component", "journal")
	}
	return &Replayer{
		logger:   logger,
		surfaces: make(map[string]*replayed),
	}
}

// Replay reads every record of r into a new Replayer.
func Replay(ctx context.Context, r *Reader) (*Replayer, error) {
	rp := NewReplayer(nil)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rp, nil
		}
		if err != nil {
			return rp, err
		}
		if err := rp.Apply(ctx, rec); err != nil {
			return rp, err
		}
	}
}

// Apply replays one record. Records of a surface must arrive in sequence;
// a gap or an op the replayed host rejects is a D022 error.
func (rp *Replayer) Apply(ctx context.Context, rec Record) error {
	s, ok := rp.surfaces[rec.Surface]
	if !ok {
		host := memhost.New()
		s = &replayed{
			host:    host,
			patcher: patch.New(host, patch.WithLogger(rp.logger)),
		}
		rp.surfaces[rec.Surface] = s
	}

	if rec.Seq != s.seq+1 {
		return derrors.New("D022").
			WithDetail(fmt.Sprintf("surface %q: record %d follows %d", rec.Surface, rec.Seq, s.seq))
	}

	if s.degraded && (rec.Phase == reconcile.PhaseResync || rec.Phase == reconcile.PhaseTeardown) {
		if _, err := s.patcher.Teardown(ctx); err != nil {
			return rp.fail(rec, err)
		}
		rp.logger.Debug("replayed resync after failure", "surface", rec.Surface, "seq", rec.Seq)
	} else if err := s.patcher.Apply(ctx, rec.Script[:rec.Applied]); err != nil {
		return rp.fail(rec, err)
	}

	s.seq = rec.Seq
	s.degraded = rec.Failed()
	rp.records++
	if rec.Failed() {
		rp.failed++
	}
	return nil
}

func (rp *Replayer) fail(rec Record, err error) error {
	return derrors.New("D022").
		WithDetail(fmt.Sprintf("surface %q record %d (%s)", rec.Surface, rec.Seq, rec.Phase)).
		Wrap(err)
}

// Surfaces returns the replayed surface ids in order.
func (rp *Replayer) Surfaces() []string {
	ids := make([]string, 0, len(rp.surfaces))
	for id := range rp.surfaces {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Tree returns what the surface shows after the replayed records, without
// keys. It is nil for an emptied surface; ok is false for an unknown one.
func (rp *Replayer) Tree(surface string) (tree *dom.Node, ok bool) {
	s, ok := rp.surfaces[surface]
	if !ok {
		return nil, false
	}
	tree, _ = s.host.Snapshot()
	return tree, true
}

// Host returns the in-memory host of a surface.
func (rp *Replayer) Host(surface string) (*memhost.Host, bool) {
	s, ok := rp.surfaces[surface]
	if !ok {
		return nil, false
	}
	return s.host, true
}

// Degraded reports whether the surface's last record failed.
func (rp *Replayer) Degraded(surface string) bool {
	s, ok := rp.surfaces[surface]
	return ok && s.degraded
}

// Records returns the number of records applied, and how many of them
// had failed originally.
func (rp *Replayer) Records() (total, failed int) {
	return rp.records, rp.failed
}
