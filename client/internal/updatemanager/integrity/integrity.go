package integrity

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2s"
)

// ErrIO is returned when a file cannot be read for hashing
var ErrIO = errors.New("io error")

type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE2s Algorithm = "blake2s"
)

// Comparator hashes artifacts with a 256-bit digest
type Comparator struct {
	algorithm Algorithm
}

func NewComparator(algorithm Algorithm) (*Comparator, error) {
	switch algorithm {
	case "", SHA256:
		return &Comparator{algorithm: SHA256}, nil
	case BLAKE2s:
		return &Comparator{algorithm: BLAKE2s}, nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
}

func (c *Comparator) Algorithm() Algorithm {
	return c.algorithm
}

func (c *Comparator) newHash() hash.Hash {
	if c.algorithm == BLAKE2s {
		h, err := blake2s.New256(nil)
		if err != nil {
			panic(err) // unkeyed BLAKE2s-256 cannot fail
		}
		return h
	}
	return sha256.New()
}

// Digest returns the content hash of the file at path
func (c *Comparator) Digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("failed to close %s: %v", path, err)
		}
	}()

	h := c.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}

	return h.Sum(nil), nil
}

// Equal reports whether both files have the same content digest
func (c *Comparator) Equal(pathA, pathB string) (bool, error) {
	a, err := c.Digest(pathA)
	if err != nil {
		return false, err
	}

	b, err := c.Digest(pathB)
	if err != nil {
		return false, err
	}

	return bytes.Equal(a, b), nil
}
