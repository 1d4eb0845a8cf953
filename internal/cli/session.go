package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Profile remembers the active slot and, for remote play, the server.
type Profile struct {
	Slot      string `json:"slot"`
	ServerURL string `json:"server_url,omitempty"`
}

func profilePath(dir string) string {
	return filepath.Join(dir, "profile.json")
}

func SaveProfile(dir string, p Profile) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(profilePath(dir), body, 0o600)
}

// LoadProfile returns an empty profile when none was saved yet.
func LoadProfile(dir string) (Profile, error) {
	body, err := os.ReadFile(profilePath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, err
	}
	p.Slot = strings.TrimSpace(p.Slot)
	p.ServerURL = strings.TrimRight(strings.TrimSpace(p.ServerURL), "/")
	return p, nil
}
