package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tradequest/internal/game"
)

const (
	extJSON = ".json"
	extZstd = ".json.zst"
)

// FileStore keeps one JSON document per slot, optionally zstd-compressed.
type FileStore struct {
	dir      string
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

func NewFileStore(dir string, compress bool) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &FileStore{dir: dir, compress: compress, enc: enc, dec: dec}, nil
}

func (s *FileStore) path(slot, ext string) string {
	return filepath.Join(s.dir, slot+ext)
}

// read prefers the format the store is configured to write, so a slot
// saved in both formats resolves to the newest write.
func (s *FileStore) read(slot string) ([]byte, os.FileInfo, error) {
	order := []string{extJSON, extZstd}
	if s.compress {
		order = []string{extZstd, extJSON}
	}
	for _, ext := range order {
		p := s.path(slot, ext)
		raw, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, nil, err
		}
		if ext == extZstd {
			raw, err = s.dec.DecodeAll(raw, nil)
			if err != nil {
				return nil, nil, fmt.Errorf("decompress %s: %w", slot, err)
			}
		}
		return raw, fi, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
}

func (s *FileStore) Load(_ context.Context, slot string) (*game.State, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	raw, _, err := s.read(slot)
	if err != nil {
		return nil, err
	}
	var st game.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode save %s: %w", slot, err)
	}
	st.Normalize()
	return &st, nil
}

func (s *FileStore) Save(_ context.Context, slot string, st *game.State) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save %s: %w", slot, err)
	}
	ext, stale := extJSON, extZstd
	if s.compress {
		raw = s.enc.EncodeAll(raw, nil)
		ext, stale = extZstd, extJSON
	}
	if err := writeAtomic(s.path(slot, ext), raw); err != nil {
		return err
	}
	if err := os.Remove(s.path(slot, stale)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) List(ctx context.Context) ([]SlotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []SlotInfo{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var slot string
		switch {
		case strings.HasSuffix(name, extZstd):
			slot = strings.TrimSuffix(name, extZstd)
		case strings.HasSuffix(name, extJSON):
			slot = strings.TrimSuffix(name, extJSON)
		default:
			continue
		}
		if seen[slot] || ValidateSlot(slot) != nil {
			continue
		}
		seen[slot] = true
		st, err := s.Load(ctx, slot)
		if err != nil {
			return nil, err
		}
		_, fi, err := s.read(slot)
		if err != nil {
			return nil, err
		}
		out = append(out, infoOf(slot, st, fi.ModTime()))
	}
	slices.SortFunc(out, func(a, b SlotInfo) int { return strings.Compare(a.Slot, b.Slot) })
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	removed := false
	for _, ext := range []string{extJSON, extZstd} {
		err := os.Remove(s.path(slot, ext))
		if err == nil {
			removed = true
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}
