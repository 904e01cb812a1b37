// Package profile remembers which username the client last worked as.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/idilsaglam/tada-sync/internal/config"
	"github.com/idilsaglam/tada-sync/internal/store/jsonstore"
)

const fileName = "profile.json"

// EnvUser overrides the saved profile.
const EnvUser = "TADA_USER"

type Profile struct {
	Username  string    `json:"username"`
	Source    string    `json:"source"`     // "env" | "file"
	UpdatedAt time.Time `json:"updated_at"` // when we saved to file
}

func filePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Get returns the active profile, or nil when none is set.
func Get() (*Profile, error) {
	if env := strings.TrimSpace(os.Getenv(EnvUser)); env != "" {
		return &Profile{Username: env, Source: "env"}, nil
	}

	p, err := filePath()
	if err != nil {
		return nil, err
	}
	var pr Profile
	found, err := jsonstore.Load(p, &pr)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	pr.Username = strings.TrimSpace(pr.Username)
	if !found || pr.Username == "" {
		return nil, nil
	}
	pr.Source = "file"
	return &pr, nil
}

// Set saves username as the default profile.
func Set(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("empty username")
	}
	p, err := filePath()
	if err != nil {
		return err
	}
	// ~/.tada is private to the owner.
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	pr := Profile{Username: username, Source: "file", UpdatedAt: time.Now()}
	if err := jsonstore.Save(p, pr); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Forget removes the saved profile. A missing file is fine.
func Forget() error {
	p, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}
