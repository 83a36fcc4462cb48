package parser

import (
	"context"
	"io"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/segment"
)

// Result is the outcome of parsing one complete response body.
type Result struct {
	Transcript *eventstream.Transcript
	Segments   []*segment.Segment
}

// Parse runs r through a fresh session until EOF and summarizes it.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*Result, error) {
	s := New(opts...)
	rec, err := Record(s)
	if err != nil {
		return nil, err
	}

	if _, err := s.Consume(ctx, r); err != nil {
		return nil, err
	}

	t, err := rec.Transcript(s)
	if err != nil {
		return nil, err
	}

	return &Result{Transcript: t, Segments: s.Segments()}, nil
}
