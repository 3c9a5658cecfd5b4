package persist

import (
	"fmt"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
)

// CaptureEntities copies every live entity of w in ascending id order.
func CaptureEntities(w *ecs.World) ([]EntityRecord, error) {
	ids := w.Entities()
	out := make([]EntityRecord, 0, len(ids))
	for _, id := range ids {
		rec := EntityRecord{ID: uint64(id), Components: []ComponentRecord{}}
		for _, c := range w.ComponentsOf(id) {
			kind, raw, err := component.Encode(c)
			if err != nil {
				return nil, fmt.Errorf("entity %d: %w", id, err)
			}
			rec.Components = append(rec.Components, ComponentRecord{Kind: kind, Data: raw})
		}
		out = append(out, rec)
	}
	return out, nil
}

// RestoreEntities recreates records in w under their original ids. w should
// hold no entity whose id appears in records.
func RestoreEntities(w *ecs.World, records []EntityRecord, nextID uint64) error {
	for _, rec := range records {
		id := ecs.EntityID(rec.ID)
		if err := w.CreateWithID(id); err != nil {
			return fmt.Errorf("restore entity %d: %w", id, err)
		}
		for _, cr := range rec.Components {
			c, err := component.Decode(cr.Kind, cr.Data)
			if err != nil {
				return fmt.Errorf("restore entity %d: %w", id, err)
			}
			if err := w.Add(id, c); err != nil {
				return fmt.Errorf("restore entity %d: %w", id, err)
			}
		}
	}
	w.SetNextID(ecs.EntityID(nextID))
	return nil
}
