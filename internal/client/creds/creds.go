// Package creds persists the client session between process runs.
// Two files under the user config dir hold the serialized identity and the
// tokens; they are always written and removed together.
package creds

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Isma450/inkpost/internal/model"
)

const (
	userFile  = "user.json"
	tokenFile = "token.json"
)

// FileStore is a durable key/value holder for the current session.
type FileStore struct{ dir string }

// NewFileStore stores credentials under dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// DefaultDir resolves the per-user config directory.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "inkpost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "inkpost")
}

type storedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Save persists the session. Both keys are written; a failure on either
// leaves nothing half-written thanks to the rename step.
func (s *FileStore) Save(sess model.Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, userFile), sess.User); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, tokenFile), storedTokens{
		AccessToken:  sess.Token,
		RefreshToken: sess.RefreshToken,
	})
}

// Load returns the stored session. Missing or unparseable data yields an
// empty session, never an error: corrupt credentials mean "logged out".
func (s *FileStore) Load() (model.Session, bool) {
	var u model.User
	if !readJSON(filepath.Join(s.dir, userFile), &u) {
		return model.Session{}, false
	}
	var t storedTokens
	if !readJSON(filepath.Join(s.dir, tokenFile), &t) {
		return model.Session{}, false
	}
	if t.AccessToken == "" || u.Username == "" {
		return model.Session{}, false
	}
	return model.Session{User: &u, Token: t.AccessToken, RefreshToken: t.RefreshToken}, true
}

// Clear removes both keys. Never one without the other: a half-cleared store
// would read back as a partially authenticated session.
func (s *FileStore) Clear() error {
	err1 := os.Remove(filepath.Join(s.dir, userFile))
	err2 := os.Remove(filepath.Join(s.dir, tokenFile))
	if err1 != nil && !os.IsNotExist(err1) {
		return err1
	}
	if err2 != nil && !os.IsNotExist(err2) {
		return err2
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, v) == nil
}
