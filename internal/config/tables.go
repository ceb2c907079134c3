package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableSeed is the floor's table list, written as "id:seats,id:seats".
// It implements envconfig.Decoder.
type TableSeed []model.Table

func (s *TableSeed) Decode(value string) error {
	seen := map[model.TableID]bool{}
	var out TableSeed
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idStr, seatStr, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("table %q: want id:seats", part)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil || id <= 0 {
			return fmt.Errorf("table %q: invalid id", part)
		}
		seats, err := strconv.Atoi(strings.TrimSpace(seatStr))
		if err != nil || seats <= 0 {
			return fmt.Errorf("table %q: invalid seat count", part)
		}
		if seen[model.TableID(id)] {
			return fmt.Errorf("table %d listed twice", id)
		}
		seen[model.TableID(id)] = true
		out = append(out, model.Table{ID: model.TableID(id), SeatCount: seats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	*s = out
	return nil
}
