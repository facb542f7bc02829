package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"finboard/internal/storage"
)

// ProviderID identifies an external market-data source.
type ProviderID string

const (
	ProviderAlphaVantage ProviderID = "alphavantage"
	ProviderFinnhub      ProviderID = "finnhub"
	ProviderYahoo        ProviderID = "yahoo"
	ProviderNewsData     ProviderID = "newsdata"
	ProviderCustom       ProviderID = "custom"
)

// KnownProviders lists the fixed provider enumeration.
var KnownProviders = []ProviderID{
	ProviderAlphaVantage,
	ProviderFinnhub,
	ProviderYahoo,
	ProviderNewsData,
	ProviderCustom,
}

// ProviderConfig holds the user-supplied credentials for one provider.
// At most one config exists per provider id; adding again overwrites.
type ProviderConfig struct {
	Provider ProviderID `json:"provider"`
	APIKey   string     `json:"apiKey"`
	BaseURL  string     `json:"baseUrl,omitempty"`
	Name     string     `json:"name,omitempty"`
}

// Validate enforces the constraints applied on add.
func (c ProviderConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("provider id is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("provider %s: api key is required", c.Provider)
	}
	if c.Provider == ProviderCustom {
		if c.Name == "" {
			return errors.New("custom provider: display name is required")
		}
		if c.BaseURL == "" {
			return errors.New("custom provider: base url is required")
		}
	}
	return nil
}

const (
	storageKey   = "api-configs"
	seededMarker = "api-configs-seeded"
)

// ErrNotFound is returned when no config exists for a provider id.
var ErrNotFound = errors.New("configstore: provider not configured")

// Store keeps provider configurations in memory and mirrors every mutation
// to durable storage under the "api-configs" key.
type Store struct {
	store  *storage.Store
	logger zerolog.Logger

	mu      sync.RWMutex
	configs map[ProviderID]ProviderConfig
	order   []ProviderID
}

// NewStore builds an empty store. Call Load before first use.
func NewStore(store *storage.Store, logger zerolog.Logger) *Store {
	return &Store{
		store:   store,
		logger:  logger.With().Str("component", "configstore").Logger(),
		configs: make(map[ProviderID]ProviderConfig),
	}
}

// Load rehydrates the persisted config set. Malformed stored data is logged
// and ignored; the store stays empty rather than failing startup.
func (s *Store) Load() {
	var pairs []configPair
	if err := s.store.Get(storageKey, &pairs); err != nil {
		if !errors.Is(err, storage.ErrNoValue) {
			s.logger.Warn().Err(err).Msg("stored api configs unreadable; starting empty")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		if _, exists := s.configs[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.configs[p.ID] = p.Config
	}
}

// Seed installs environment-supplied default configs, once per store
// lifetime. After the first pass a marker persists so a provider the user
// removed is never silently reinstated. Placeholder credentials are skipped.
func (s *Store) Seed(defaults []ProviderConfig) {
	var seeded bool
	if err := s.store.Get(seededMarker, &seeded); err == nil && seeded {
		return
	}

	for _, cfg := range defaults {
		if isPlaceholderKey(cfg.APIKey) {
			continue
		}
		if _, err := s.Get(cfg.Provider); err == nil {
			continue
		}
		if err := s.Add(cfg); err != nil {
			s.logger.Warn().Err(err).Str("provider", string(cfg.Provider)).Msg("default config rejected")
			continue
		}
		s.logger.Info().Str("provider", string(cfg.Provider)).Msg("seeded provider config from environment")
	}

	if err := s.store.Set(seededMarker, true); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist seed marker")
	}
}

// Add upserts a config keyed by provider id and persists the full set.
// Validation or persistence failures reject the call; in-memory state only
// changes once the set is durably written.
func (s *Store) Add(cfg ProviderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	previous, existed := s.configs[cfg.Provider]
	if !existed {
		s.order = append(s.order, cfg.Provider)
	}
	s.configs[cfg.Provider] = cfg
	if err := s.persistLocked(); err != nil {
		if existed {
			s.configs[cfg.Provider] = previous
		} else {
			delete(s.configs, cfg.Provider)
			s.order = s.order[:len(s.order)-1]
		}
		return err
	}
	return nil
}

// Remove deletes the config for a provider id if present. Idempotent. A
// persistence failure leaves the config in place.
func (s *Store) Remove(id ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, exists := s.configs[id]
	if !exists {
		return nil
	}

	prevOrder := s.order
	next := make([]ProviderID, 0, len(s.order)-1)
	for _, o := range s.order {
		if o != id {
			next = append(next, o)
		}
	}
	delete(s.configs, id)
	s.order = next

	if err := s.persistLocked(); err != nil {
		s.configs[id] = previous
		s.order = prevOrder
		return err
	}
	return nil
}

// Get returns the config for a provider id, or ErrNotFound.
func (s *Store) Get(id ProviderID) (ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cfg, nil
}

// List returns all configs in insertion order.
func (s *Store) List() []ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProviderConfig, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.configs[id])
	}
	return out
}

func (s *Store) persistLocked() error {
	pairs := make([]configPair, 0, len(s.order))
	for _, id := range s.order {
		pairs = append(pairs, configPair{ID: id, Config: s.configs[id]})
	}
	if err := s.store.Set(storageKey, pairs); err != nil {
		return fmt.Errorf("persist api configs: %w", err)
	}
	return nil
}

// configPair serializes as a two-element [id, config] array, the layout the
// dashboard frontend has always written under "api-configs".
type configPair struct {
	ID     ProviderID
	Config ProviderConfig
}

func (p configPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.ID, p.Config})
}

func (p *configPair) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Config)
}

// Placeholder credentials shipped in sample env files; never real keys.
var placeholderKeys = map[string]struct{}{
	"YT":    {},
	"pub_5": {},
}

func isPlaceholderKey(key string) bool {
	if key == "" {
		return true
	}
	_, ok := placeholderKeys[key]
	return ok
}
