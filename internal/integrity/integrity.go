// Package integrity fingerprints point files so converted or appended
// outputs can be compared for equality. It can hash a whole file, or only
// the record payload that follows the textual header, so two files that
// differ only in header spacing or count padding still compare equal.
package integrity

import (
	"bufio"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm selects the hash function.
type Algorithm int

const (
	// BLAKE3 is the default algorithm (fast and secure).
	BLAKE3 Algorithm = iota
	// SHA256 is secure but slower.
	SHA256
	// MD5 is provided for compatibility only; it is not secure.
	MD5
)

// String returns the algorithm's name.
func (a Algorithm) String() string {
	switch a {
	case BLAKE3:
		return "BLAKE3"
	case SHA256:
		return "SHA256"
	case MD5:
		return "MD5"
	default:
		return "Undefined"
	}
}

// ParseAlgorithm resolves an algorithm by name, case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "blake3":
		return BLAKE3, nil
	case "sha256":
		return SHA256, nil
	case "md5":
		return MD5, nil
	default:
		return 0, fmt.Errorf("integrity: unknown hash algorithm %q", name)
	}
}

// Result is the outcome of a fingerprint operation.
type Result struct {
	// Hash is the hex-encoded digest.
	Hash string
	// Algorithm is the algorithm that produced it.
	Algorithm Algorithm
	// Size is the number of bytes hashed.
	Size int64
}

func newHasher(a Algorithm) (hash.Hash, error) {
	switch a {
	case BLAKE3:
		return blake3.New(), nil
	case SHA256:
		return sha256.New(), nil
	case MD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("integrity: unsupported hash algorithm: %s", a)
	}
}

// File fingerprints the whole file.
func File(path string, a Algorithm) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("integrity: failed to open %q: %w", path, err)
	}
	defer f.Close()
	return fromReader(f, a)
}

// Payload fingerprints only the bytes that follow the end_header line of a
// PLY file: the point records and the trailing terminator.
func Payload(path string, a Algorithm) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("integrity: failed to open %q: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return Result{}, fmt.Errorf("integrity: %q has no end_header line", path)
		}
		if strings.TrimSpace(line) == "end_header" {
			break
		}
	}
	return fromReader(br, a)
}

func fromReader(r io.Reader, a Algorithm) (Result, error) {
	hasher, err := newHasher(a)
	if err != nil {
		return Result{}, err
	}
	size, err := io.Copy(hasher, r)
	if err != nil {
		return Result{}, fmt.Errorf("integrity: failed to hash data: %w", err)
	}
	return Result{
		Hash:      hex.EncodeToString(hasher.Sum(nil)),
		Algorithm: a,
		Size:      size,
	}, nil
}

// Verify reports whether the file's fingerprint matches the expected
// digest.
func Verify(path, expected string, a Algorithm) (bool, error) {
	res, err := File(path, a)
	if err != nil {
		return false, err
	}
	return res.Hash == expected, nil
}
