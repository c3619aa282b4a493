// Package memory is an in-process expense store for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"expensetracker/internal/core"
)

// SeedFile is the file NewFromFiles reads from the seed directory.
// Each non-comment line is owner;name;date;amount;category.
const SeedFile = "seed_expenses.txt"

type Store struct {
	mu    sync.Mutex
	items map[string][]core.Expense // by owner, insertion order
	seq   int
}

func New(seed ...core.Expense) *Store {
	s := &Store{items: make(map[string][]core.Expense)}
	for _, e := range seed {
		s.items[e.OwnerID] = append(s.items[e.OwnerID], e)
	}
	return s
}

// NewFromFiles seeds a store from base/seed_expenses.txt. A missing file yields
// an empty store; malformed lines are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for i, line := range readLines(filepath.Join(base, SeedFile)) {
		e, ok := parseSeedLine(line)
		if !ok {
			continue
		}
		e.ID = fmt.Sprintf("seed-%d", i+1)
		s.items[e.OwnerID] = append(s.items[e.OwnerID], e)
	}
	return s
}

// Insert stores rec. Records without an ID get a synthetic one.
func (s *Store) Insert(_ context.Context, rec core.Expense) error {
	if strings.TrimSpace(rec.OwnerID) == "" {
		return core.ErrEmptyOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("mem:%d", s.seq)
	}
	s.items[rec.OwnerID] = append(s.items[rec.OwnerID], rec)
	return nil
}

// List returns a copy of the owner's records in insertion order.
func (s *Store) List(ctx context.Context, ownerID string) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.items[ownerID])
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

// Delete removes the owner's record with id.
func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.items[ownerID]
	i := slices.IndexFunc(recs, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return core.ErrNotFound
	}
	s.items[ownerID] = slices.Delete(recs, i, i+1)
	return nil
}

// Owners lists every owner with at least one record, sorted.
func (s *Store) Owners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owners []string
	for owner, recs := range s.items {
		if len(recs) > 0 {
			owners = append(owners, owner)
		}
	}
	slices.Sort(owners)
	return owners, nil
}

func parseSeedLine(line string) (core.Expense, bool) {
	parts := strings.Split(line, ";")
	if len(parts) != 5 {
		return core.Expense{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(parts[3], ",", "."), 64)
	if err != nil || parts[0] == "" {
		return core.Expense{}, false
	}
	return core.Expense{
		OwnerID:      parts[0],
		Name:         parts[1],
		Date:         parts[2],
		Amount:       amount,
		Category:     parts[4],
		CategoryIcon: core.IconFor(core.Category(parts[4])),
	}, true
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
