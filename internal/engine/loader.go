package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Loader produces an Image from a path.
type Loader interface {
	Load(ctx context.Context, path string) (*Image, error)
}

// imageFile is the on-disk TOML layout of an image description.
type imageFile struct {
	Name   string      `toml:"name"`
	Arch   string      `toml:"arch"`
	Entry  uint64      `toml:"entry"`
	Blocks []Block     `toml:"blocks"`
	Hooks  []hookEntry `toml:"hooks"`
}

type hookEntry struct {
	Addr uint64 `toml:"addr"`
	Lua  string `toml:"lua"`
}

// TOMLLoader loads image descriptions from TOML files.
type TOMLLoader struct {
	readFile func(string) ([]byte, error)
}

// NewTOMLLoader creates a loader reading from the local file system.
func NewTOMLLoader() *TOMLLoader {
	return &TOMLLoader{readFile: os.ReadFile}
}

// Load reads and validates the image at path.
// Every failure is reported as a *LoadError.
func (l *TOMLLoader) Load(ctx context.Context, path string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := l.readFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "cannot open", Err: err}
	}
	return l.parse(path, data)
}

// LoadFromReader reads an image description from r. name is used in errors
// and as the default image name.
func (l *TOMLLoader) LoadFromReader(name string, r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Path: name, Reason: "cannot read", Err: err}
	}
	return l.parse(name, data)
}

func (l *TOMLLoader) parse(path string, data []byte) (*Image, error) {
	var f imageFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid image description", Err: err}
	}

	img := &Image{
		Name:   f.Name,
		Path:   path,
		Arch:   f.Arch,
		Entry:  f.Entry,
		Blocks: make(map[uint64]*Block, len(f.Blocks)),
		Hooks:  make(map[uint64]string, len(f.Hooks)),
	}
	if img.Name == "" {
		img.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for i := range f.Blocks {
		b := f.Blocks[i]
		if b.Kind == "" {
			b.Kind = JumpBoring
		}
		if len(b.Instructions) == 0 {
			b.Instructions = []uint64{b.Addr}
		}
		if _, dup := img.Blocks[b.Addr]; dup {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf("duplicate block %#x", b.Addr)}
		}
		img.Blocks[b.Addr] = &b
	}
	for _, h := range f.Hooks {
		img.Hooks[h.Addr] = h.Lua
	}

	if err := img.Validate(); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid image", Err: err}
	}
	return img, nil
}
