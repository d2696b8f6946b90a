package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

var encMode = mustCanonicalEncMode()

func mustCanonicalEncMode() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: building canonical CBOR encoder: %v", err))
	}
	return mode
}

// Encode serializes a Bundle to its canonical CBOR form. Canonical map-key
// ordering makes the output deterministic given the same Bundle value,
// satisfying the content-hash requirement of spec §6.1.
func Encode(b *Bundle) ([]byte, error) {
	return encMode.Marshal(b)
}

// Decode deserializes a Bundle from its CBOR form.
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	if err := dm.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return &b, nil
}

// BundleFileName and MetadataFileName are the canonical artifact names the
// compiler writes into an output directory and the loader looks for.
const (
	BundleFileName   = "bundle.cbor"
	MetadataFileName = "bundle.meta.json"
)

// WriteAtomic serializes the bundle and writes it, together with a JSON
// metadata sidecar, atomically into outputDir: each file is written to a
// temp path in the same directory and renamed into place, so a reader never
// observes a partially written artifact.
func WriteAtomic(outputDir string, b *Bundle) error {
	data, err := Encode(b)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}

	metaData, err := json.MarshalIndent(b.BuildMetadata, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bundle metadata: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(outputDir, BundleFileName), data); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(outputDir, MetadataFileName), metaData); err != nil {
		return err
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into place %s: %w", path, err)
	}
	return nil
}

// ReadFile loads and decodes a bundle from the canonical bundle file inside
// dir.
func ReadFile(dir string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, BundleFileName))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// ContentHash computes the hex-encoded sha256 digest of the concatenated,
// sorted-by-name raw YAML file contents that produced a bundle — used as
// the metadata sidecar's source_hash.
func ContentHash(sourceFiles map[string][]byte) string {
	names := make([]string, 0, len(sourceFiles))
	for name := range sourceFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(sourceFiles[name])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

