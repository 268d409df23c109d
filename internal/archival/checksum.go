package archival

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"publishd/internal/archival/interfaces"
	"math"
	"publishd/internal/models"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	json "github.com/goccy/go-json"
)

var ErrMissingIndicator = errors.New("missing indicator checksums")

// MissingIndicatorError reports indicators referenced by an entity's config
// that have no stored checksums.
type MissingIndicatorError struct {
	Entity  models.EntityRef
	Missing []int
}

func (e *MissingIndicatorError) Error() string {
	return fmt.Sprintf("%s references %d indicator(s) without checksums: %v", e.Entity, len(e.Missing), e.Missing)
}

func (e *MissingIndicatorError) Unwrap() error {
	return ErrMissingIndicator
}

type ChecksumComputer struct {
	source interfaces.EntitySourceInterface
}

func NewChecksumComputer(source interfaces.EntitySourceInterface) interfaces.ChecksumComputerInterface {
	return &ChecksumComputer{source: source}
}

func (c *ChecksumComputer) Compute(ctx context.Context, ref models.EntityRef) (*models.EntityChecksums, error) {
	def, err := c.source.EntityDefinition(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}

	ids, err := uniqueSorted(def.IndicatorIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	result := &models.EntityChecksums{
		Entity:         def.Entity,
		ConfigChecksum: def.ConfigChecksum,
		Indicators:     make(map[int]models.IndicatorChecksum, len(ids)),
	}
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := c.source.IndicatorChecksums(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching indicator checksums for %s: %w", ref, err)
	}
	for _, row := range rows {
		result.Indicators[row.IndicatorID] = row
	}

	if len(rows) != len(ids) || len(result.Indicators) != len(ids) {
		var missing []int
		for _, id := range ids {
			if _, ok := result.Indicators[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, &MissingIndicatorError{Entity: def.Entity, Missing: missing}
	}
	return result, nil
}

func uniqueSorted(ids []int) ([]int, error) {
	set := roaring.New()
	for _, id := range ids {
		if id < 0 || int64(id) > math.MaxUint32 {
			return nil, fmt.Errorf("indicator id %d out of range", id)
		}
		set.Add(uint32(id))
	}
	out := make([]int, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out, nil
}

type canonicalIndicator struct {
	DataChecksum     string `json:"dataChecksum"`
	MetadataChecksum string `json:"metadataChecksum"`
}

type canonicalChecksums struct {
	ConfigChecksum string                        `json:"configChecksum"`
	Indicators     map[string]canonicalIndicator `json:"indicators"`
}

// CanonicalJSON serializes checksums with sorted keys and no whitespace.
// Struct fields are declared in key order; map keys are sorted by the encoder.
func CanonicalJSON(c *models.EntityChecksums) ([]byte, error) {
	if c == nil {
		return nil, errors.New("nil checksums")
	}
	doc := canonicalChecksums{
		ConfigChecksum: c.ConfigChecksum,
		Indicators:     make(map[string]canonicalIndicator, len(c.Indicators)),
	}
	for id, ind := range c.Indicators {
		doc.Indicators[strconv.Itoa(id)] = canonicalIndicator{
			DataChecksum:     ind.DataChecksum,
			MetadataChecksum: ind.MetadataChecksum,
		}
	}
	return json.Marshal(doc)
}

// HashChecksums is the content address of an entity's inputs. Changing the
// serialization invalidates every stored hash.
func HashChecksums(c *models.EntityChecksums) (string, error) {
	data, err := CanonicalJSON(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
