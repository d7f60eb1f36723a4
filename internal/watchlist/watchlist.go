package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dyike/CortexSwing/pkg/dataflows"
)

// DefaultGroup is the group new tickers are added to.
const DefaultGroup = "tech"

var ErrTickerNotFound = errors.New("ticker not in watchlist")

// Store is a JSON file of ticker groups, e.g. {"tech": ["AAPL", "PLTR"]}.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// List returns every ticker across groups, upper-case, unique and sorted.
// A missing file is an empty watchlist.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, tickers := range groups {
		for _, t := range tickers {
			seen[dataflows.NormalizeSymbol(t)] = true
		}
	}
	return sortedKeys(seen), nil
}

// Add puts ticker in the default group. Adding a ticker already present is
// a no-op and reports added=false.
func (s *Store) Add(ticker string) (added bool, err error) {
	ticker = dataflows.NormalizeSymbol(ticker)
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.load()
	if err != nil {
		return false, err
	}
	for _, tickers := range groups {
		for _, t := range tickers {
			if dataflows.NormalizeSymbol(t) == ticker {
				return false, nil
			}
		}
	}
	groups[DefaultGroup] = normalize(append(groups[DefaultGroup], ticker))
	return true, s.save(groups)
}

// Remove deletes ticker from every group.
func (s *Store) Remove(ticker string) error {
	ticker = dataflows.NormalizeSymbol(ticker)

	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for name, tickers := range groups {
		kept := tickers[:0]
		for _, t := range tickers {
			if dataflows.NormalizeSymbol(t) == ticker {
				found = true
				continue
			}
			kept = append(kept, t)
		}
		groups[name] = normalize(kept)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	return s.save(groups)
}

func (s *Store) load() (map[string][]string, error) {
	groups := make(map[string][]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return groups, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	if len(data) == 0 {
		return groups, nil
	}
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", s.path, err)
	}
	return groups, nil
}

func (s *Store) save(groups map[string][]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watchlist dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "tickers-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp watchlist: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(groups); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode watchlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp watchlist: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func normalize(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		seen[dataflows.NormalizeSymbol(t)] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
