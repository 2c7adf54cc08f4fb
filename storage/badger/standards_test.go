package badger

import (
	"context"
	"testing"

	"github.com/poiesic/safetyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardsRepository_LoadEmpty(t *testing.T) {
	repos := setupRepositories(t)

	standards, err := repos.Standards.LoadStandards(context.Background())
	require.NoError(t, err)
	assert.Nil(t, standards)
}

func TestStandardsRepository_SaveLoad(t *testing.T) {
	repos := setupRepositories(t)
	ctx := context.Background()

	err := repos.Standards.SaveStandards(ctx, &core.Standards{
		AverageResponseMinutes: map[string]float64{"chemical": 15, "fire": 8.5},
	})
	require.NoError(t, err)

	standards, err := repos.Standards.LoadStandards(ctx)
	require.NoError(t, err)
	require.NotNil(t, standards)
	assert.False(t, standards.UpdatedAt.IsZero())

	v, ok := standards.Lookup("fire")
	assert.True(t, ok)
	assert.Equal(t, 8.5, v)

	_, ok = standards.Lookup("radiological")
	assert.False(t, ok)
}

func TestStandardsRepository_Overwrite(t *testing.T) {
	repos := setupRepositories(t)
	ctx := context.Background()

	require.NoError(t, repos.Standards.SaveStandards(ctx, &core.Standards{
		AverageResponseMinutes: map[string]float64{"chemical": 15},
	}))
	require.NoError(t, repos.Standards.SaveStandards(ctx, &core.Standards{
		AverageResponseMinutes: map[string]float64{"fire": 10},
	}))

	standards, err := repos.Standards.LoadStandards(ctx)
	require.NoError(t, err)
	_, ok := standards.Lookup("chemical")
	assert.False(t, ok)
	v, _ := standards.Lookup("fire")
	assert.Equal(t, 10.0, v)
}
