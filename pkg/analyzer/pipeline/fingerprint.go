package pipeline

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/iepathos/debtmap/pkg/config"
	"github.com/iepathos/debtmap/pkg/source"
)

// Fingerprint digests everything that can change an analysis result:
// source contents, the coverage report, and the active configuration.
// Identical fingerprints guarantee bit-identical results, which is what
// makes the result cache safe.
func Fingerprint(files []string, src source.ContentSource, coverageRaw []byte, cfg *config.Config) (string, error) {
	h := blake3.New()

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	for _, path := range sorted {
		data, err := src.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("fingerprinting %s: %w", path, err)
		}
		sum := blake3.Sum256(data)
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write(sum[:])
	}

	h.Write([]byte{0xff})
	covSum := blake3.Sum256(coverageRaw)
	h.Write(covSum[:])

	// encoding/json emits struct fields in declaration order and sorts map
	// keys, so this encoding is canonical for a given config value.
	cfgData, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	cfgSum := blake3.Sum256(cfgData)
	h.Write(cfgSum[:])

	return hex.EncodeToString(h.Sum(nil)), nil
}
