package ingest

import (
	"context"

	"github.com/roach88/tbingest/internal/record"
	"github.com/roach88/tbingest/internal/timestamp"
)

// SerialPipeline ingests the per-node serial stream.
//
// One instance ingests one stream: its header state and reassembly buffer
// live as long as the instance.
type SerialPipeline struct {
	pipeline
	classifier *Classifier
}

// NewSerialPipeline returns a pipeline writing to st.
func NewSerialPipeline(st Store, opts Options) *SerialPipeline {
	p := &SerialPipeline{pipeline: newPipeline(StreamSerial, st, opts)}
	p.classifier = NewClassifier(p.opts.Registry, p.log)
	p.stage = serialStage{
		classifier: p.classifier,
		registry:   p.opts.Registry,
		normalizer: p.opts.Normalizer,
	}
	return p
}

// Run ingests src until it is exhausted.
func (p *SerialPipeline) Run(ctx context.Context, src ChunkSource) (Stats, error) {
	return p.run(ctx, src)
}

// Classifier returns the pipeline's classifier and its header state.
func (p *SerialPipeline) Classifier() *Classifier {
	return p.classifier
}

type serialStage struct {
	classifier *Classifier
	registry   *record.Registry
	normalizer timestamp.Normalizer
}

func (s serialStage) classify(e *entry) {
	s.classifier.classify(e)
}

func (s serialStage) resolve(e *entry) {
	switch e.action {
	case actOutput, actInfo, actData:
	default:
		return
	}

	// Every row kind stores the canonical timestamp, output and info included.
	ts, err := s.normalizer.Normalize(e.ts)
	if err != nil {
		e.err = err
		return
	}

	switch e.action {
	case actOutput:
		e.rec, e.err = s.registry.Output(ts, e.source, e.payload)
	case actInfo:
		e.rec, e.err = s.registry.Info(ts, e.source, e.payload)
	case actData:
		e.rec, e.err = s.registry.Route(ts, e.source, e.fields)
	}
}
