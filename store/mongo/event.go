package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/bftrelay/event"
)

// AppendEvent persists an event.
func (s *Store) AppendEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("bftrelay/mongo: append event: %w", err)
	}

	return nil
}

// ListEvents returns events newest first, optionally filtered by kind or time range.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	if opts.From != nil || opts.To != nil {
		dateFilter := bson.M{}
		if opts.From != nil {
			dateFilter["$gte"] = *opts.From
		}

		if opts.To != nil {
			dateFilter["$lte"] = *opts.To
		}

		filter["created_at"] = dateFilter
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bftrelay/mongo: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(models))

	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, evt)
	}

	return result, nil
}
