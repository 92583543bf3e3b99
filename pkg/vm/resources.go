package vm

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResourceLoader finds named resources for Class.getResourceAsStream.
// A missing resource is reported with an error matching fs.ErrNotExist.
type ResourceLoader interface {
	Open(name string) ([]byte, error)
}

// jmodMagic prefixes the zip payload of JDK jmod files.
var jmodMagic = []byte("JM\x01\x00")

// JarResourceLoader loads resources from a jar, zip or jmod archive.
type JarResourceLoader struct {
	Path      string
	Cache     map[string][]byte
	zipReader *zip.Reader
}

// NewJarResourceLoader creates a loader for the archive at path. The
// archive is opened on first use.
func NewJarResourceLoader(path string) *JarResourceLoader {
	return &JarResourceLoader{
		Path:  path,
		Cache: make(map[string][]byte),
	}
}

func (l *JarResourceLoader) ensureZipReader() error {
	if l.zipReader != nil {
		return nil
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return fmt.Errorf("jar: reading %s: %w", l.Path, err)
	}
	data = bytes.TrimPrefix(data, jmodMagic)

	l.zipReader, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("jar: opening zip %s: %w", l.Path, err)
	}
	return nil
}

func (l *JarResourceLoader) Open(name string) ([]byte, error) {
	if data, ok := l.Cache[name]; ok {
		return data, nil
	}

	if err := l.ensureZipReader(); err != nil {
		return nil, err
	}

	for _, file := range l.zipReader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("jar: opening %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("jar: reading %s: %w", name, err)
		}
		l.Cache[name] = data
		return data, nil
	}

	return nil, fmt.Errorf("jar: resource %s not found in %s: %w", name, l.Path, fs.ErrNotExist)
}

// DirResourceLoader loads resources from a directory tree.
type DirResourceLoader struct {
	Root string
}

func (l *DirResourceLoader) Open(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("dir: resource %s: %w", name, err)
	}
	return data, nil
}

// ChainResourceLoader asks each loader in turn; the first hit wins.
type ChainResourceLoader []ResourceLoader

func (c ChainResourceLoader) Open(name string) ([]byte, error) {
	for _, l := range c {
		data, err := l.Open(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("resource %s: %w", name, fs.ErrNotExist)
}

// OpenResourcePath builds a loader over a search path. Entries ending in
// .jar, .zip or .jmod are archives; anything else is a directory.
func OpenResourcePath(paths []string) ResourceLoader {
	chain := make(ChainResourceLoader, 0, len(paths))
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".jar", ".zip", ".jmod":
			chain = append(chain, NewJarResourceLoader(p))
		default:
			chain = append(chain, &DirResourceLoader{Root: p})
		}
	}
	return chain
}
