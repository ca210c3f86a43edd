package config

import (
	"log"
	"sync"
	"sync/atomic"
)

// Store holds the current bot configuration and swaps it on reload.
// Readers take a snapshot with Current and keep it for the whole command.
type Store struct {
	path    string
	mu      sync.Mutex
	current atomic.Pointer[Config]
}

// NewStore loads path once; a broken file at startup is fatal to the caller.
func NewStore(path string) (*Store, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(cfg)
	return s, nil
}

// NewStaticStore wraps an already built config that is never reloaded.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

func (s *Store) Path() string { return s.path }

func (s *Store) Current() *Config {
	return s.current.Load()
}

// Reload re-reads the file. On error the previous configuration stays active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := ReadFile(s.path)
	if err != nil {
		log.Printf("ERROR: config reload failed, keeping previous config: %v", err)
		return err
	}
	s.current.Store(cfg)
	log.Printf("INFO: config reloaded from %s", s.path)
	return nil
}
