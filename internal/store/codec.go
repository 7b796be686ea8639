package store

import (
	"encoding/json"
	"fmt"

	"tier-rewards-go/internal/models"
)

// Column codecs shared by the SQL backends. Tier sets and unlock dates are
// stored as JSON text so both SQLite and Postgres can use a TEXT column.

func EncodeTiers(ids []int) (string, error) {
	if ids == nil {
		ids = []int{}
	}
	b, err := json.Marshal(models.SortedInts(ids))
	if err != nil {
		return "", fmt.Errorf("unable to encode tier set: %w", err)
	}
	return string(b), nil
}

func DecodeTiers(raw string) ([]int, error) {
	ids := []int{}
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("unable to decode tier set %q: %w", raw, err)
	}
	return ids, nil
}

func EncodeUnlockDates(dates map[int]models.Date) (string, error) {
	if dates == nil {
		dates = map[int]models.Date{}
	}
	b, err := json.Marshal(dates)
	if err != nil {
		return "", fmt.Errorf("unable to encode unlock dates: %w", err)
	}
	return string(b), nil
}

func DecodeUnlockDates(raw string) (map[int]models.Date, error) {
	dates := map[int]models.Date{}
	if raw == "" {
		return dates, nil
	}
	if err := json.Unmarshal([]byte(raw), &dates); err != nil {
		return nil, fmt.Errorf("unable to decode unlock dates %q: %w", raw, err)
	}
	return dates, nil
}
