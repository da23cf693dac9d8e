package itembank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cat-engine/backend/internal/irt"
	"github.com/cat-engine/backend/internal/models"
)

// LoadCSV reads a bank from a CSV file with a header row naming the
// columns id (or ID), a, b, g and optionally u.
func LoadCSV(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open item bank: %w", err)
	}
	defer f.Close()

	items, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return New(items)
}

// ReadCSV parses item rows in file order. Missing u defaults to 1.0.
func ReadCSV(r io.Reader) ([]models.Item, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyBank
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"id", "a", "b", "g"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	uCol, hasU := cols["u"]

	var items []models.Item
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		it := models.Item{ID: strings.TrimSpace(rec[cols["id"]]), U: irt.DefaultCeiling}
		fields := []struct {
			name string
			dst  *float64
		}{{"a", &it.A}, {"b", &it.B}, {"g", &it.G}}
		for _, fld := range fields {
			v, err := parseFloat(rec[cols[fld.name]])
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, fld.name, err)
			}
			*fld.dst = v
		}
		if hasU && strings.TrimSpace(rec[uCol]) != "" {
			v, err := parseFloat(rec[uCol])
			if err != nil {
				return nil, fmt.Errorf("line %d: column u: %w", line, err)
			}
			it.U = v
		}
		items = append(items, it)
	}

	if len(items) == 0 {
		return nil, ErrEmptyBank
	}
	return items, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
