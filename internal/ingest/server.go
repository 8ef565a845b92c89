package ingest

import (
	"context"
	"strings"

	"github.com/roach88/tbingest/internal/ingesterr"
	"github.com/roach88/tbingest/internal/record"
	"github.com/roach88/tbingest/internal/timestamp"
)

// ServerPipeline ingests the server stream: "timestamp,address,port,payload"
// lines after one header row. There is no per-source state.
type ServerPipeline struct {
	pipeline
}

// NewServerPipeline returns a pipeline writing to st.
func NewServerPipeline(st Store, opts Options) *ServerPipeline {
	p := &ServerPipeline{pipeline: newPipeline(StreamServer, st, opts)}
	p.stage = &serverStage{
		registry:   p.opts.Registry,
		normalizer: p.opts.Normalizer,
	}
	return p
}

// Run ingests src until it is exhausted.
func (p *ServerPipeline) Run(ctx context.Context, src ChunkSource) (Stats, error) {
	return p.run(ctx, src)
}

type serverStage struct {
	registry      *record.Registry
	normalizer    timestamp.Normalizer
	headerSkipped bool
}

func (s *serverStage) classify(e *entry) {
	if !s.headerSkipped {
		s.headerSkipped = true
		e.action = actSkip
		return
	}
	if e.line == "" {
		e.action = actSkip
		return
	}

	// The payload is the remainder and may itself contain commas.
	parts := strings.SplitN(e.line, fieldSep, 4)
	if len(parts) < 4 {
		e.action = actInvalid
		e.err = ingesterr.Parse("split server line", "expected timestamp,address,port,payload", nil)
		return
	}
	e.action = actServer
	e.ts, e.source = parts[0], parts[1]
	e.fields = parts[2:]
}

func (s *serverStage) resolve(e *entry) {
	if e.action != actServer {
		return
	}

	ts, err := s.normalizer.Normalize(e.ts)
	if err != nil {
		e.err = err
		return
	}
	e.rec, e.err = s.registry.Server(ts, e.source, e.fields[0], e.fields[1])
}
