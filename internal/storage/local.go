// Package storage persists uploaded files on the local filesystem.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()

		if err != nil {
			return nil, fmt.Errorf("storage: resolve cwd: %w", err)
		}

		root = filepath.Join(cwd, root)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", root, err)
	}

	return &Disk{root: root}, nil
}

func (d *Disk) abs(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

func (d *Disk) Put(name string, r io.Reader) error {
	full := d.abs(name)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	f, err := os.Create(full)

	if err != nil {
		return fmt.Errorf("storage: create %s: %w", name, err)
	}

	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}

	return nil
}

func (d *Disk) Exists(name string) bool {
	_, err := os.Stat(d.abs(name))
	return err == nil
}

func (d *Disk) Delete(name string) error {
	err := os.Remove(d.abs(name))

	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}

	return nil
}
