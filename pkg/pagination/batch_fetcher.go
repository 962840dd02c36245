package pagination

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultChunkSize is Harvest's practical ceiling for identifier lists in a
// single candidates request.
const DefaultChunkSize = 50

// ChunkFetcher fetches the records for one chunk of identifiers.
type ChunkFetcher[E, T any] func(ctx context.Context, chunk []E) ([]T, error)

// Chunk partitions ids into contiguous slices of at most size elements,
// preserving order. The last chunk may be smaller.
func Chunk[E any](ids []E, size int) [][]E {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]E, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		end := min(i+size, len(ids))
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}

// FetchInBatches calls fetch once per chunk of ids, one chunk at a time, and
// concatenates the results in chunk order. Any chunk failure aborts the batch.
// No request is issued for an empty ids slice.
func FetchInBatches[E, T any](ctx context.Context, ids []E, chunkSize int, fetch ChunkFetcher[E, T]) ([]T, error) {
	results := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	start := time.Now()
	chunks := Chunk(ids, chunkSize)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := fetch(ctx, chunk)
		if err != nil {
			log.Warn().
				Err(err).
				Int("batch", i+1).
				Int("batches", len(chunks)).
				Msg("Batch fetch failed")
			return nil, err
		}
		results = append(results, batch...)

		log.Debug().
			Int("batch", i+1).
			Int("batches", len(chunks)).
			Int("ids", len(chunk)).
			Int("records", len(batch)).
			Msg("Batch fetched")
	}

	log.Debug().
		Int("ids", len(ids)).
		Int("batches", len(chunks)).
		Int("records", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}
