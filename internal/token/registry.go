package token

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of well-known tokens, keyed by lowercased
// address and by uppercased symbol. Built once at startup; lookups are
// case-insensitive and constant-time.
type Registry struct {
	byAddress map[string]*Token
	bySymbol  map[string]*Token
	mu        sync.RWMutex
}

// NewRegistry creates a new empty token registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddress: make(map[string]*Token),
		bySymbol:  make(map[string]*Token),
	}
}

// Register adds a token to the registry.
// Panics if a token with the same address is already registered.
func (r *Registry) Register(t *Token) {
	if t == nil {
		panic("token: cannot register nil token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(t.Address().Hex())
	if _, exists := r.byAddress[key]; exists {
		panic(fmt.Sprintf("token: %s already registered", key))
	}

	r.byAddress[key] = t
	r.bySymbol[strings.ToUpper(t.Symbol())] = t
}

// GetByAddress retrieves a token by address, case-insensitively.
func (r *Registry) GetByAddress(addr common.Address) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byAddress[strings.ToLower(addr.Hex())]
	return t, ok
}

// GetBySymbol retrieves a token by symbol, case-insensitively.
func (r *Registry) GetBySymbol(symbol string) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// IsNative reports whether addr denotes the native coin.
func (r *Registry) IsNative(addr common.Address) bool {
	return IsNativeAddress(addr)
}

// All returns all registered tokens.
func (r *Registry) All() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Token, 0, len(r.byAddress))
	for _, t := range r.byAddress {
		result = append(result, t)
	}
	return result
}

// CommonBases returns the fixed intermediary set used for routing:
// native, wrapped-native, USDC, USDT, DAI. Symbols missing from the
// registry are skipped.
func (r *Registry) CommonBases() []*Token {
	result := make([]*Token, 0, len(commonBaseSymbols))
	for _, sym := range commonBaseSymbols {
		if t, ok := r.GetBySymbol(sym); ok {
			result = append(result, t)
		}
	}
	return result
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
