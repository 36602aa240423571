package loader

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// keyPerm allows only the owner to read the key.
const keyPerm = 0400

// fileLoader stores a key in a single file.
//
// - implements loader.Loader
type fileLoader struct {
	path string
}

// NewFileLoader returns a loader of the key in the file.
func NewFileLoader(path string) Loader {
	return fileLoader{path: path}
}

// LoadOrCreate implements loader.Loader. A new key is written to a temporary
// file first, so that a crash never leaves a truncated key behind.
func (l fileLoader) LoadOrCreate(g Generator) ([]byte, error) {
	_, err := os.Stat(l.path)
	if err == nil || !os.IsNotExist(err) {
		return l.Load()
	}

	key, err := g.Generate()
	if err != nil {
		return nil, xerrors.Errorf("generator failed: %v", err)
	}

	err = l.write(key)
	if err != nil {
		return nil, xerrors.Errorf("while creating file: %v", err)
	}

	return key, nil
}

func (l fileLoader) write(key []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*")
	if err != nil {
		return err
	}

	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(hex.EncodeToString(key) + "\n")
	if err != nil {
		tmp.Close()
		return err
	}

	err = tmp.Close()
	if err != nil {
		return err
	}

	err = os.Chmod(tmp.Name(), keyPerm)
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), l.path)
}

// Load implements loader.Loader.
func (l fileLoader) Load() ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, xerrors.Errorf("while opening file: %v", err)
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, xerrors.Errorf("while decoding file: %v", err)
	}

	return key, nil
}
