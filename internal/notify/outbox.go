package notify

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultOutboxPath is where toasts wait for the next interactive session.
func DefaultOutboxPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tradequest", "outbox.json"), nil
}

func LoadOutbox(path string) ([]Toast, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Toast{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Toast{}, nil
	}
	var out []Toast
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func SaveOutbox(path string, toasts []Toast) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if toasts == nil {
		toasts = []Toast{}
	}
	raw, err := json.MarshalIndent(toasts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func AppendOutbox(path string, toasts ...Toast) error {
	if len(toasts) == 0 {
		return nil
	}
	existing, err := LoadOutbox(path)
	if err != nil {
		return err
	}
	return SaveOutbox(path, append(existing, toasts...))
}

// TakeOutbox returns every pending toast and clears the file.
func TakeOutbox(path string) ([]Toast, error) {
	toasts, err := LoadOutbox(path)
	if err != nil {
		return nil, err
	}
	if len(toasts) == 0 {
		return toasts, nil
	}
	return toasts, SaveOutbox(path, nil)
}
