package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arch-ai/spark/internal/models"
)

func groupFixture() []models.ContainerRecord {
	return []models.ContainerRecord{
		{ID: "o1", Name: "scratch", GroupName: models.OtherGroup, Activity: 10, Running: true},
		{ID: "b1", Name: "queue", GroupName: "billing", Activity: 2 * 86400},
		{ID: "a2", Name: "worker", GroupName: "shop", GroupPath: "/srv/shop", Activity: 7200, Running: true},
		{ID: "a1", Name: "api", GroupName: "shop", GroupPath: "/srv/shop", Activity: 3600, Running: true},
	}
}

func TestGroupContainersOrdersByRecency(t *testing.T) {
	flat, rows := GroupContainers(groupFixture(), models.SortCPU, models.Desc)

	names := make([]string, len(flat))
	for i := range flat {
		names[i] = flat[i].Name
	}
	assert.Equal(t, []string{"api", "worker", "queue", "scratch"}, names)

	require.Len(t, rows, 9)
	assert.Equal(t, models.DockerRow{Kind: models.RowGroup, Name: "shop", Path: "/srv/shop", Count: 2, RunningCount: 2}, rows[0])
	assert.Equal(t, models.DockerRow{Kind: models.RowItem, Index: 0, Prefix: "  ├─ "}, rows[1])
	assert.Equal(t, models.DockerRow{Kind: models.RowItem, Index: 1, Prefix: "  └─ "}, rows[2])
	assert.Equal(t, models.RowSeparator, rows[3].Kind)
	assert.Equal(t, models.DockerRow{Kind: models.RowGroup, Name: "billing", Count: 1}, rows[4])
	assert.Equal(t, models.DockerRow{Kind: models.RowItem, Index: 2, Prefix: "  └─ "}, rows[5])
	assert.Equal(t, models.RowSeparator, rows[6].Kind)
	assert.Equal(t, "Other", rows[7].Name)
	assert.Equal(t, models.DockerRow{Kind: models.RowItem, Index: 3, Prefix: "  └─ "}, rows[8])
}

func TestGroupContainersTieBreaksWithinPartition(t *testing.T) {
	recs := []models.ContainerRecord{
		{ID: "1", Name: "small", GroupName: "g", Activity: 60, MemoryBytes: 10},
		{ID: "2", Name: "large", GroupName: "g", Activity: 60, MemoryBytes: 500},
		{ID: "3", Name: "Beta", GroupName: "g", Activity: 60, MemoryBytes: 10},
	}

	flat, _ := GroupContainers(recs, models.SortMemory, models.Desc)
	assert.Equal(t, "large", flat[0].Name)
	assert.Equal(t, "Beta", flat[1].Name)
	assert.Equal(t, "small", flat[2].Name)

	flat, _ = GroupContainers(recs, models.SortMemory, models.Asc)
	assert.Equal(t, "Beta", flat[0].Name)
	assert.Equal(t, "large", flat[2].Name)
}

func TestGroupContainersEmpty(t *testing.T) {
	flat, rows := GroupContainers(nil, models.SortCPU, models.Desc)
	assert.Empty(t, flat)
	assert.Empty(t, rows)
}

func TestFilterContainers(t *testing.T) {
	recs := groupFixture()
	assert.Len(t, FilterContainers(recs, ""), 4)

	got := FilterContainers(recs, "SHOP")
	require.Len(t, got, 2)
	assert.Equal(t, "worker", got[0].Name)

	assert.Empty(t, FilterContainers(recs, "nomatch"))
}

func TestContainersInGroup(t *testing.T) {
	recs := groupFixture()
	assert.Equal(t, []string{"a2", "a1"}, ContainersInGroup(recs, "/srv/shop"))
	assert.Equal(t, []string{"o1"}, ContainersInGroup(recs, models.OtherGroup))
	assert.Empty(t, ContainersInGroup(recs, "shop"))
}
