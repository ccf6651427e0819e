package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Cache is the on-disk token cache. It is read once and written back only
// when the token changed.
type Cache struct {
	Path  string `json:"-"`
	Token string `json:"token,omitempty"`
	dirty bool
}

// Open loads the cache at path. A missing file yields an empty cache.
func Open(path string) (*Cache, error) {
	c := &Cache{Path: path}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to stat cache file %s: %w", path, err)
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("failed to decode cache file %s: %w", c.Path, err)
	}
	c.dirty = false
	return nil
}

// SetToken replaces the cached token.
func (c *Cache) SetToken(token string) {
	if c.Token != token {
		c.Token = token
		c.dirty = true
	}
}

// Dirty reports whether the cache has unsaved changes.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// Save writes the cache if it changed since it was loaded.
func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.OpenFile(c.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open cache file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.Path, err)
	}
	c.dirty = false
	return nil
}

// With opens the cache at path, runs fn and saves the cache afterwards on
// every exit path, including when fn fails or panics.
func With(path string, fn func(*Cache) error) (err error) {
	c, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if saveErr := c.Save(); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}()
	return fn(c)
}
