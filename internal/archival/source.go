package archival

import (
	"context"
	"errors"
	"fmt"
	"publishd/internal/archival/interfaces"
	"publishd/internal/models"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const indicatorQueryChunk = 500

var ErrEntityNotFound = errors.New("entity not found")

// GormEntitySource reads the CMS tables.
type GormEntitySource struct {
	db *gorm.DB
}

func NewGormEntitySource(db *gorm.DB) interfaces.EntitySourceInterface {
	return &GormEntitySource{db: db}
}

// ListPublished returns every published entity, charts first, then multi-dim
// pages, then explorers, each ordered by identity.
func (s *GormEntitySource) ListPublished(ctx context.Context) ([]models.EntityRef, error) {
	db := s.db.WithContext(ctx)
	var universe []models.EntityRef

	var charts []models.Chart
	if err := db.Select("id", "slug").Where("published = ?", true).Order("id").Find(&charts).Error; err != nil {
		return nil, fmt.Errorf("listing charts: %w", err)
	}
	for _, c := range charts {
		universe = append(universe, models.EntityRef{Kind: models.KindChart, ID: c.ID, Slug: c.Slug})
	}

	var pages []models.MultiDimDataPage
	if err := db.Select("id", "slug").Where("published = ?", true).Order("id").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("listing multi-dim pages: %w", err)
	}
	for _, p := range pages {
		universe = append(universe, models.EntityRef{Kind: models.KindMultiDim, ID: p.ID, Slug: p.Slug})
	}

	var explorers []models.Explorer
	if err := db.Select("slug").Where("published = ?", true).Order("slug").Find(&explorers).Error; err != nil {
		return nil, fmt.Errorf("listing explorers: %w", err)
	}
	for _, e := range explorers {
		universe = append(universe, models.EntityRef{Kind: models.KindExplorer, Slug: e.Slug})
	}
	return universe, nil
}

func (s *GormEntitySource) EntityDefinition(ctx context.Context, ref models.EntityRef) (*models.EntityDefinition, error) {
	db := s.db.WithContext(ctx)

	var (
		config   datatypes.JSON
		checksum string
		entity   = ref
		err      error
	)
	switch ref.Kind {
	case models.KindChart:
		var row models.Chart
		err = db.First(&row, "id = ?", ref.ID).Error
		config, checksum, entity.Slug = row.Config, row.ConfigChecksum, row.Slug
	case models.KindMultiDim:
		var row models.MultiDimDataPage
		err = db.First(&row, "id = ?", ref.ID).Error
		config, checksum, entity.Slug = row.Config, row.ConfigChecksum, row.Slug
	case models.KindExplorer:
		var row models.Explorer
		err = db.First(&row, "slug = ?", ref.Slug).Error
		config, checksum = row.Config, row.ConfigChecksum
	default:
		return nil, fmt.Errorf("unknown entity kind %q", ref.Kind)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", ref, ErrEntityNotFound)
	}
	if err != nil {
		return nil, err
	}

	ids, err := ExtractIndicatorIDs(ref.Kind, config)
	if err != nil {
		return nil, fmt.Errorf("parsing config of %s: %w", ref, err)
	}
	return &models.EntityDefinition{Entity: entity, ConfigChecksum: checksum, IndicatorIDs: ids}, nil
}

func (s *GormEntitySource) IndicatorChecksums(ctx context.Context, ids []int) ([]models.IndicatorChecksum, error) {
	out := make([]models.IndicatorChecksum, 0, len(ids))
	for start := 0; start < len(ids); start += indicatorQueryChunk {
		end := min(start+indicatorQueryChunk, len(ids))
		var rows []models.Variable
		err := s.db.WithContext(ctx).
			Select("id", "metadata_checksum", "data_checksum").
			Where("id IN ?", ids[start:end]).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, models.IndicatorChecksum{
				IndicatorID:      r.ID,
				MetadataChecksum: r.MetadataChecksum,
				DataChecksum:     r.DataChecksum,
			})
		}
	}
	return out, nil
}

type chartConfig struct {
	Dimensions []struct {
		VariableID int `json:"variableId"`
	} `json:"dimensions"`
}

type indicatorRef struct {
	ID int `json:"id"`
}

type multiDimConfig struct {
	Views []struct {
		Indicators struct {
			Y     []indicatorRef `json:"y"`
			X     *indicatorRef  `json:"x"`
			Size  *indicatorRef  `json:"size"`
			Color *indicatorRef  `json:"color"`
		} `json:"indicators"`
	} `json:"views"`
}

type explorerConfig struct {
	Views []struct {
		YVariableIDs    []int `json:"yVariableIds"`
		XVariableID     int   `json:"xVariableId"`
		ColorVariableID int   `json:"colorVariableId"`
		SizeVariableID  int   `json:"sizeVariableId"`
	} `json:"views"`
}

// ExtractIndicatorIDs lists the indicator IDs a config references, with
// duplicates and in document order. Zero IDs are ignored.
func ExtractIndicatorIDs(kind models.EntityKind, config []byte) ([]int, error) {
	if len(config) == 0 {
		return nil, nil
	}

	var ids []int
	add := func(id int) {
		if id > 0 {
			ids = append(ids, id)
		}
	}

	switch kind {
	case models.KindChart:
		var c chartConfig
		if err := json.Unmarshal(config, &c); err != nil {
			return nil, err
		}
		for _, d := range c.Dimensions {
			add(d.VariableID)
		}
	case models.KindMultiDim:
		var c multiDimConfig
		if err := json.Unmarshal(config, &c); err != nil {
			return nil, err
		}
		for _, v := range c.Views {
			for _, y := range v.Indicators.Y {
				add(y.ID)
			}
			for _, ref := range []*indicatorRef{v.Indicators.X, v.Indicators.Size, v.Indicators.Color} {
				if ref != nil {
					add(ref.ID)
				}
			}
		}
	case models.KindExplorer:
		var c explorerConfig
		if err := json.Unmarshal(config, &c); err != nil {
			return nil, err
		}
		for _, v := range c.Views {
			for _, id := range v.YVariableIDs {
				add(id)
			}
			add(v.XVariableID)
			add(v.ColorVariableID)
			add(v.SizeVariableID)
		}
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return ids, nil
}
