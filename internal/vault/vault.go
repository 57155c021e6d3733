// Package vault reads and writes notes inside a notes directory. Paths are
// slash-separated and relative to the vault root.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrFolderMissing = errors.New("folder does not exist")
	ErrExists        = errors.New("file already exists")
	ErrOutsideVault  = errors.New("path escapes the vault")
)

type Vault interface {
	Read(path string) (string, error)
	// Write replaces path, creating it if needed. The parent folder must exist.
	Write(path, content string) error
	// Create writes a new file and fails with ErrExists if path is taken.
	Create(path, content string) error
	CreateFolder(path string) error
	Exists(path string) bool
}

// FS is a Vault backed by a directory on disk.
type FS struct {
	Root string
}

func (v FS) Read(p string) (string, error) {
	full, err := v.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

func (v FS) Write(p, content string) error {
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := requireParent(p, full); err != nil {
		return err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func (v FS) Create(p, content string) error {
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := requireParent(p, full); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create %s: %w", p, ErrExists)
		}
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	return nil
}

func (v FS) CreateFolder(p string) error {
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", p, err)
	}
	return nil
}

func (v FS) Exists(p string) bool {
	full, err := v.resolve(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (v FS) resolve(p string) (string, error) {
	rel := path.Clean(strings.TrimPrefix(filepath.ToSlash(p), "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%q: %w", p, ErrOutsideVault)
	}
	return filepath.Join(v.Root, filepath.FromSlash(rel)), nil
}

func requireParent(p, full string) error {
	info, err := os.Stat(filepath.Dir(full))
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", path.Dir(p), ErrFolderMissing)
	}
	return nil
}
