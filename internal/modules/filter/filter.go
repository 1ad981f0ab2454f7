// Package filter provides implementations for filter modules.
// Filter modules transform records between the input and output stages.
package filter

import (
	"context"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Module represents a filter module that transforms records.
type Module interface {
	// Process transforms the input records and returns the records to pass
	// downstream. Implementations must not retain the slice or its records.
	Process(ctx context.Context, records []*connector.Record) ([]*connector.Record, error)
}

// mapRecords applies fn to every non-nil record, checking ctx every 100 records.
func mapRecords(ctx context.Context, records []*connector.Record, fn func(*connector.Record) *connector.Record) ([]*connector.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(records) == 0 {
		return records, nil
	}

	result := make([]*connector.Record, 0, len(records))
	for i, rec := range records {
		if i > 0 && i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if rec == nil {
			result = append(result, nil)
			continue
		}
		result = append(result, fn(rec))
	}
	return result, nil
}
