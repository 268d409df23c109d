package archival

import (
	"context"
	"errors"
	"publishd/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func seedSource(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.Chart{
		{ID: 42, Slug: "life-expectancy", ConfigChecksum: "cA", Published: true,
			Config: datatypes.JSON(`{"dimensions":[{"variableId":7,"property":"y"},{"variableId":9,"property":"x"},{"variableId":7,"property":"color"}]}`)},
		{ID: 5, Slug: "draft", ConfigChecksum: "cD", Published: false,
			Config: datatypes.JSON(`{"dimensions":[]}`)},
		{ID: 3, Slug: "population", ConfigChecksum: "cP", Published: true,
			Config: datatypes.JSON(`{"dimensions":[{"variableId":11}]}`)},
	}).Error)
	require.NoError(t, db.Create(&models.MultiDimDataPage{
		ID: 1, Slug: "covid", ConfigChecksum: "cM", Published: true,
		Config: datatypes.JSON(`{"views":[{"indicators":{"y":[{"id":21},{"id":22}],"x":{"id":23}}},{"indicators":{"y":[{"id":21}],"color":{"id":24},"size":{"id":25}}}]}`),
	}).Error)
	require.NoError(t, db.Create(&models.Explorer{
		Slug: "co2", ConfigChecksum: "cE", Published: true,
		Config: datatypes.JSON(`{"views":[{"yVariableIds":[31,32],"xVariableId":33,"colorVariableId":0,"sizeVariableId":34}]}`),
	}).Error)
	require.NoError(t, db.Create(&[]models.Variable{
		{ID: 7, MetadataChecksum: "m7", DataChecksum: "d7"},
		{ID: 9, MetadataChecksum: "m9", DataChecksum: "d9"},
		{ID: 11, MetadataChecksum: "m11", DataChecksum: "d11"},
	}).Error)
}

func TestGormEntitySource_ListPublished(t *testing.T) {
	db := newTestDB(t)
	seedSource(t, db)

	universe, err := NewGormEntitySource(db).ListPublished(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.EntityRef{
		{Kind: models.KindChart, ID: 3, Slug: "population"},
		{Kind: models.KindChart, ID: 42, Slug: "life-expectancy"},
		{Kind: models.KindMultiDim, ID: 1, Slug: "covid"},
		{Kind: models.KindExplorer, Slug: "co2"},
	}, universe)
}

func TestGormEntitySource_EntityDefinition(t *testing.T) {
	db := newTestDB(t)
	seedSource(t, db)
	src := NewGormEntitySource(db)
	ctx := context.Background()

	def, err := src.EntityDefinition(ctx, models.EntityRef{Kind: models.KindChart, ID: 42})
	require.NoError(t, err)
	assert.Equal(t, "life-expectancy", def.Entity.Slug, "slug is filled from the row")
	assert.Equal(t, "cA", def.ConfigChecksum)
	assert.Equal(t, []int{7, 9, 7}, def.IndicatorIDs)

	def, err = src.EntityDefinition(ctx, models.EntityRef{Kind: models.KindMultiDim, ID: 1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{21, 22, 23, 21, 24, 25}, def.IndicatorIDs)

	def, err = src.EntityDefinition(ctx, models.EntityRef{Kind: models.KindExplorer, Slug: "co2"})
	require.NoError(t, err)
	assert.Equal(t, []int{31, 32, 33, 34}, def.IndicatorIDs)
	assert.Equal(t, "cE", def.ConfigChecksum)
}

func TestGormEntitySource_EntityNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := NewGormEntitySource(db).EntityDefinition(context.Background(), models.EntityRef{Kind: models.KindChart, ID: 404})
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestGormEntitySource_IndicatorChecksums(t *testing.T) {
	db := newTestDB(t)
	seedSource(t, db)

	rows, err := NewGormEntitySource(db).IndicatorChecksums(context.Background(), []int{7, 9, 999})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[int]models.IndicatorChecksum{}
	for _, r := range rows {
		byID[r.IndicatorID] = r
	}
	assert.Equal(t, "m7", byID[7].MetadataChecksum)
	assert.Equal(t, "d9", byID[9].DataChecksum)
}

func TestGormEntitySource_IndicatorChecksumsChunked(t *testing.T) {
	db := newTestDB(t)
	var vars []models.Variable
	var ids []int
	for i := 1; i <= indicatorQueryChunk+25; i++ {
		vars = append(vars, models.Variable{ID: i, MetadataChecksum: "m", DataChecksum: "d"})
		ids = append(ids, i)
	}
	require.NoError(t, db.CreateInBatches(&vars, 100).Error)

	rows, err := NewGormEntitySource(db).IndicatorChecksums(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, rows, len(ids))
}

func TestChecksumComputer_WithGormSource(t *testing.T) {
	db := newTestDB(t)
	seedSource(t, db)

	got, err := NewChecksumComputer(NewGormEntitySource(db)).Compute(context.Background(), models.EntityRef{Kind: models.KindChart, ID: 42})
	require.NoError(t, err)
	assert.Len(t, got.Indicators, 2)

	_, err = NewChecksumComputer(NewGormEntitySource(db)).Compute(context.Background(), models.EntityRef{Kind: models.KindMultiDim, ID: 1})
	assert.True(t, errors.Is(err, ErrMissingIndicator))
}

func TestExtractIndicatorIDs(t *testing.T) {
	ids, err := ExtractIndicatorIDs(models.KindChart, []byte(`{"dimensions":[{"variableId":3},{"variableId":0},{"property":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)

	ids, err = ExtractIndicatorIDs(models.KindExplorer, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ExtractIndicatorIDs(models.KindChart, []byte(`{"dimensions":`))
	assert.Error(t, err)

	_, err = ExtractIndicatorIDs("gdoc", []byte(`{}`))
	assert.Error(t, err)
}
