package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pavelanni/classbook/internal/model"
)

// Dump builds the single JSON document holding every collection and singleton.
func (s *Store) Dump(ctx context.Context) (model.Document, error) {
	doc := model.Document{
		Collections: make(map[string][]json.RawMessage),
		Singletons:  make(map[string]json.RawMessage),
	}

	names, err := s.backend.Collections(ctx)
	if err != nil {
		return doc, fmt.Errorf("list collections: %w", err)
	}
	for _, name := range names {
		recs, err := s.records(ctx, name)
		if err != nil {
			return doc, err
		}
		items := make([]json.RawMessage, 0, len(recs))
		for _, r := range recs {
			items = append(items, json.RawMessage(r.Data))
		}
		doc.Collections[name] = items
	}

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return doc, fmt.Errorf("list singletons: %w", err)
	}
	for _, k := range keys {
		data, err := s.value(ctx, k)
		if err != nil {
			return doc, err
		}
		doc.Singletons[k] = json.RawMessage(data)
	}
	return doc, nil
}

// Restore replaces every collection and singleton present in doc.
// Record keys are taken from each item's "id", then "name", then its position.
func (s *Store) Restore(ctx context.Context, doc model.Document) error {
	for name, items := range doc.Collections {
		recs := make([]Record, 0, len(items))
		for i, raw := range items {
			recs = append(recs, Record{Key: recordKey(raw, i), Data: raw})
		}
		if err := s.replace(ctx, name, recs); err != nil {
			return err
		}
		slog.Info("restored collection", "collection", name, "count", len(recs))
	}
	for key, raw := range doc.Singletons {
		if err := s.setValue(ctx, key, raw); err != nil {
			return err
		}
	}
	return nil
}

func recordKey(raw json.RawMessage, pos int) string {
	var probe struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		if probe.ID != "" {
			return probe.ID
		}
		if probe.Name != "" {
			return probe.Name
		}
	}
	return strconv.Itoa(pos)
}
