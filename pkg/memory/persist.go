package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// EncodeStore writes the durable store as one JSON object keyed by
// memory text, in insertion order. Overwrite semantics; no merge.
func (m *Memory) EncodeStore(w io.Writer) error {
	if _, err := io.WriteString(w, "{"); err != nil {
		return err
	}
	for i, key := range m.order {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		k, err := json.Marshal(key)
		if err != nil {
			return fmt.Errorf("marshal store key: %w", err)
		}
		v, err := json.Marshal(m.store[key])
		if err != nil {
			return fmt.Errorf("marshal store entry: %w", err)
		}
		if _, err := w.Write(k); err != nil {
			return err
		}
		if _, err := io.WriteString(w, ":"); err != nil {
			return err
		}
		if _, err := w.Write(v); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}")
	return err
}

// DecodeStore replaces the durable store with the JSON object read from
// r. Decoding goes through the token stream so that insertion order
// survives the round trip; ranking tie-breaks depend on it.
func (m *Memory) DecodeStore(r io.Reader) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("memory store must be a JSON object, got %v", tok)
	}

	store := make(map[string]StoredEntry)
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read store key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("memory store key must be a string, got %v", keyTok)
		}
		var entry StoredEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("decode store entry %q: %w", key, err)
		}
		if _, exists := store[key]; !exists {
			order = append(order, key)
		}
		store[key] = entry
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read store close: %w", err)
	}

	m.store = store
	m.order = order
	return nil
}

// SaveStore writes the durable store to path, replacing any existing
// file.
func (m *Memory) SaveStore(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create memory store file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := m.EncodeStore(f); err != nil {
		return fmt.Errorf("write memory store: %w", err)
	}
	return f.Close()
}

// LoadStore reads the durable store from path.
func (m *Memory) LoadStore(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open memory store file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return m.DecodeStore(f)
}
