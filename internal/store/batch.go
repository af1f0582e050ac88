// Package store persists extracted listings. A Batcher groups listings into
// fixed-size batches and forwards each full batch to every configured sink:
// JSON files on disk, a webhook endpoint, or a MySQL table.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/baranw/adscraper/internal/listing"
)

// DefaultBatchSize matches the historical batch length of the scraper's
// output files.
const DefaultBatchSize = 27

// Sink receives one complete batch at a time. Batch indexes are 1-based.
type Sink interface {
	WriteBatch(ctx context.Context, index int, batch []listing.Listing) error
}

// Batcher accumulates listings and flushes every Size of them to all sinks.
// Close flushes the final partial batch. Not safe for concurrent use; the
// pipeline feeds it from a single goroutine.
type Batcher struct {
	Size  int
	Sinks []Sink

	buf   []listing.Listing
	index int
	total int
}

// Add appends one listing, flushing when the batch is full.
func (b *Batcher) Add(ctx context.Context, l listing.Listing) error {
	b.buf = append(b.buf, l)
	b.total++
	size := b.Size
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(b.buf) < size {
		return nil
	}
	return b.flush(ctx)
}

// Close flushes any buffered listings.
func (b *Batcher) Close(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	return b.flush(ctx)
}

// Total returns how many listings have been added.
func (b *Batcher) Total() int { return b.total }

func (b *Batcher) flush(ctx context.Context) error {
	b.index++
	batch := b.buf
	b.buf = nil
	for _, s := range b.Sinks {
		if err := s.WriteBatch(ctx, b.index, batch); err != nil {
			return fmt.Errorf("batch %d: %w", b.index, err)
		}
	}
	log.Info().Int("batch", b.index).Int("listings", len(batch)).Msg("batch written")
	return nil
}

// FileSink writes each batch as batch_NNN.json under Dir.
type FileSink struct {
	Dir string
}

func (s *FileSink) WriteBatch(_ context.Context, index int, batch []listing.Listing) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("batch_%03d.json", index))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}
