// Package storage keeps recorded answers on local disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// URLPrefix is the public path under which stored recordings are served.
const URLPrefix = "/audio/"

type StoredAudio struct {
	Filename string
	URL      string
}

type AudioStore struct {
	dir string
}

func NewAudioStore(dir string) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &AudioStore{dir: dir}, nil
}

func (s *AudioStore) Dir() string {
	return s.dir
}

// Save writes one recording under a collision-free name.
func (s *AudioStore) Save(sessionID string, turnIdx int, data []byte) (StoredAudio, error) {
	name := fmt.Sprintf("session_%s_turn_%d_%s.webm", sessionID, turnIdx, strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o640); err != nil {
		return StoredAudio{}, fmt.Errorf("write audio: %w", err)
	}
	return StoredAudio{Filename: name, URL: URLPrefix + name}, nil
}

// Remove deletes a recording. A missing file is not an error.
func (s *AudioStore) Remove(filename string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PurgeOlderThan deletes recordings last modified before cutoff.
func (s *AudioStore) PurgeOlderThan(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read audio dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".webm") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := s.Remove(e.Name()); err != nil {
				log.Warn().Err(err).Str("file", e.Name()).Msg("failed to purge audio")
				continue
			}
			removed++
		}
	}
	return removed, nil
}
