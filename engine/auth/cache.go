package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

// cachedToken is the persisted token shape, one file per (tenant, client).
type cachedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresOn    time.Time `json:"expires_on"`
	Scopes       []string  `json:"scopes"`
}

// validAt reports whether the token is usable at the given instant, with a
// five minute safety margin before expiry.
func (t *cachedToken) validAt(now time.Time) bool {
	return t != nil && t.AccessToken != "" && t.ExpiresOn.After(now.Add(expiryMargin))
}

const expiryMargin = 5 * time.Minute

// tokenCache persists tokens under the cache directory with user-only
// permissions. Writes serialize across processes via a lock file when the
// cache sits on the real filesystem.
type tokenCache struct {
	fs       afero.Fs
	dir      string
	tenantID string
	clientID string
}

func (c *tokenCache) path() string {
	name := fmt.Sprintf("%s_%s.json", fileSafe(c.tenantID), fileSafe(c.clientID))
	return filepath.Join(c.dir, name)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// withLock serializes cross-process cache mutations. In-memory filesystems
// (tests, dry runs) skip the file lock.
func (c *tokenCache) withLock(fn func() error) error {
	if _, ok := c.fs.(*afero.OsFs); !ok {
		return fn()
	}
	lock := flock.New(c.path() + ".lock")
	if err := lock.Lock(); err != nil {
		return core.WrapError(core.KindConfiguration,
			fmt.Sprintf("cannot lock token cache %s", c.path()), err)
	}
	defer lock.Unlock()
	return fn()
}

// load returns the persisted token, or nil when absent or unreadable. A
// corrupt cache entry is treated as absent, not fatal.
func (c *tokenCache) load() *cachedToken {
	data, err := afero.ReadFile(c.fs, c.path())
	if err != nil {
		return nil
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil
	}
	return &tok
}

func (c *tokenCache) save(tok *cachedToken) error {
	return c.withLock(func() error {
		if err := c.fs.MkdirAll(c.dir, 0o700); err != nil {
			return core.WrapError(core.KindConfiguration,
				fmt.Sprintf("cannot create token cache directory %s", c.dir), err)
		}
		data, err := json.Marshal(tok)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(c.fs, c.path(), data, 0o600); err != nil {
			return core.WrapError(core.KindConfiguration,
				fmt.Sprintf("cannot write token cache %s", c.path()), err)
		}
		return nil
	})
}

// clear removes this (tenant, client) entry.
func (c *tokenCache) clear() error {
	return c.withLock(func() error {
		err := c.fs.Remove(c.path())
		if err != nil && !isNotExist(err) {
			return err
		}
		return nil
	})
}

// clearAll removes every token entry in the cache directory.
func (c *tokenCache) clearAll() error {
	return c.withLock(func() error {
		entries, err := afero.ReadDir(c.fs, c.dir)
		if err != nil {
			if isNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			if err := c.fs.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
		return nil
	})
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, afero.ErrFileNotFound)
}
