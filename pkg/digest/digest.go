// Package digest computes content hashes over a source's byte range.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/ssargent/characterize/pkg/source"
)

// Namespace qualifies digest property names.
const Namespace = "urn:characterize:digest"

// Algorithm names a supported hash.
type Algorithm string

const (
	BLAKE3 Algorithm = "blake3"
	XXH64  Algorithm = "xxh64"
)

// ErrUnsupported is returned for unknown algorithm names.
var ErrUnsupported = errors.New("unsupported digest algorithm")

// NewHasher creates a hash.Hash for the given algorithm.
func NewHasher(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case BLAKE3:
		return blake3.New(), nil
	case XXH64:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, algorithm)
	}
}

// ParseAlgorithms converts configuration names into algorithms.
func ParseAlgorithms(names []string) ([]Algorithm, error) {
	out := make([]Algorithm, 0, len(names))
	for _, name := range names {
		a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
		if _, err := NewHasher(a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Sum reads r once and returns the hex digest for every algorithm.
func Sum(r io.Reader, algorithms []Algorithm) (map[Algorithm]string, error) {
	if len(algorithms) == 0 {
		return nil, errors.New("no algorithms specified")
	}

	hashers := make(map[Algorithm]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, a := range algorithms {
		h, err := NewHasher(a)
		if err != nil {
			return nil, err
		}
		hashers[a] = h
		writers = append(writers, h)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, fmt.Errorf("failed to calculate digests: %w", err)
	}

	sums := make(map[Algorithm]string, len(hashers))
	for a, h := range hashers {
		sums[a] = hex.EncodeToString(h.Sum(nil))
	}
	return sums, nil
}

// Node hashes the byte range of n and adds one property per algorithm, in
// the order given.
func Node(n *source.Node, algorithms []Algorithm) error {
	if len(algorithms) == 0 {
		return nil
	}

	f, err := os.Open(n.Path())
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", n.Path(), err)
	}
	defer f.Close()

	sums, err := Sum(io.NewSectionReader(f, n.Offset(), n.Length()), algorithms)
	if err != nil {
		return err
	}

	props := make([]source.Property, 0, len(algorithms))
	for _, a := range algorithms {
		props = append(props, source.Property{
			Name:      strings.ToUpper(string(a)),
			Namespace: Namespace,
			Value:     sums[a],
		})
	}
	n.AddProperty(props...)
	return nil
}

// Tree hashes every node below and including root.
func Tree(root *source.Node, algorithms []Algorithm) error {
	return root.Walk(func(n *source.Node) error {
		return Node(n, algorithms)
	})
}
