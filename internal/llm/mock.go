package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// MockGateway is a deterministic Gateway implementation for tests and
// offline use: a scripted-response table keyed by (system, user). When no
// script matches, Complete echoes the user prompt and CompleteStructured
// synthesizes a schema-shaped object from a hash of the key.
type MockGateway struct {
	mu      sync.RWMutex
	scripts map[string]string // key -> free-form response
	failing map[string]bool   // key -> force ErrLLMUnavailable
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		scripts: make(map[string]string),
		failing: make(map[string]bool),
	}
}

// key derives the scripted-response lookup key: the concatenation of
// (system, user), separated by a NUL byte.
func key(system, user string) string {
	return system + "\x00" + user
}

// Script registers a canned response for a given (system, user) pair.
func (m *MockGateway) Script(system, user, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[key(system, user)] = response
}

// ScriptKey registers a canned response under a caller-chosen key. Complete
// and CompleteStructured look responses up only by key(system, user), so an
// entry stored here is returned only when k equals system+"\x00"+user.
func (m *MockGateway) ScriptKey(k, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[k] = response
}

// FailNext forces the next call matching (system, user) to return
// ErrLLMUnavailable, exercising a consumer's pattern-based fallback path.
func (m *MockGateway) FailNext(system, user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[key(system, user)] = true
}

func (m *MockGateway) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	k := key(system, user)

	m.mu.Lock()
	if m.failing[k] {
		delete(m.failing, k)
		m.mu.Unlock()
		return "", fmt.Errorf("%w: mock gateway scripted failure", ErrLLMUnavailable)
	}
	if resp, ok := m.scripts[k]; ok {
		m.mu.Unlock()
		return resp, nil
	}
	m.mu.Unlock()

	return fmt.Sprintf("mock: %s", user), nil
}

func (m *MockGateway) CompleteStructured(ctx context.Context, system, user string, schema Schema, temperature float64) (map[string]any, error) {
	k := key(system, user)

	m.mu.Lock()
	if m.failing[k] {
		delete(m.failing, k)
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: mock gateway scripted failure", ErrLLMUnavailable)
	}
	if resp, ok := m.scripts[k]; ok {
		m.mu.Unlock()
		return parseStructured(resp, schema)
	}
	m.mu.Unlock()

	// No script registered: synthesize a deterministic, schema-shaped
	// response so tests that don't care about exact content still get a
	// stable, reproducible object across runs.
	h := sha256.Sum256([]byte(k))
	seed := hex.EncodeToString(h[:])[:8]

	obj := map[string]any{"_mock_seed": seed}
	if required, ok := schema.Schema["required"].([]string); ok {
		for _, field := range required {
			obj[field] = fmt.Sprintf("mock-%s-%s", field, seed)
		}
	}

	raw, _ := json.Marshal(obj)
	return parseStructured(string(raw), schema)
}
