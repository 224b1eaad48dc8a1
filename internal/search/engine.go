package search

import (
	"context"

	"github.com/and161185/annotator/internal/model"
)

// DefaultBatchSize caps a single range query.
const DefaultBatchSize = 200

// FetchFunc returns up to limit rows starting at offset, in store order.
// Fewer than limit rows means the source is exhausted.
type FetchFunc func(ctx context.Context, offset, limit int) ([]model.Annotation, error)

// Engine fills pages from a source whose rows are filtered after retrieval.
type Engine struct {
	batchSize int
}

// NewEngine constructs an engine; non-positive batch sizes use DefaultBatchSize.
func NewEngine(batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{batchSize: batchSize}
}

// Collect skips the first offset rows accepted by keep and returns the next
// limit accepted rows in source order. Range queries run sequentially; each
// starts where the previous one ended.
func (e *Engine) Collect(
	ctx context.Context, fetch FetchFunc, keep func(*model.Annotation) bool, offset, limit int,
) ([]model.Annotation, error) {
	if limit <= 0 {
		return []model.Annotation{}, nil
	}
	size := min(limit, e.batchSize)
	out := make([]model.Annotation, 0, size)

	skipped, pos := 0, 0
	for len(out) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := fetch(ctx, pos, size)
		if err != nil {
			return nil, err
		}
		pos += len(rows)

		for i := range rows {
			if !keep(&rows[i]) {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			out = append(out, rows[i])
			if len(out) == limit {
				break
			}
		}
		if len(rows) < size {
			break
		}
	}
	return out, nil
}
