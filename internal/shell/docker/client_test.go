package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func skipIfNoDocker(t *testing.T) Client {
	t.Helper()
	cli, err := NewDockerClient("")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	if err := cli.Ping(); err != nil {
		cli.Close()
		t.Skip("Docker not reachable:", err)
	}
	return cli
}

func cleanupContainer(t *testing.T, cli Client, containerID string) {
	t.Helper()
	timeout := 5 * time.Second
	cli.StopContainer(containerID, &timeout)
	cli.RemoveContainer(containerID, RemoveOptions{Force: true, RemoveVolumes: true})
}

// Test container name prefix to identify test containers
const testPrefix = "switchyard-test-"

// =============================================================================
// Pure Helper Tests (no daemon required)
// =============================================================================

func TestSortImagesNewestFirst(t *testing.T) {
	now := time.Now()
	images := []ImageInfo{
		{ID: "old", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "newest", CreatedAt: now},
		{ID: "middle", CreatedAt: now.Add(-time.Hour)},
	}

	SortImagesNewestFirst(images)

	assert.Equal(t, "newest", images[0].ID)
	assert.Equal(t, "middle", images[1].ID)
	assert.Equal(t, "old", images[2].ID)
}

func TestSortImagesNewestFirst_TieBreaksOnID(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	images := []ImageInfo{
		{ID: "aaa", CreatedAt: ts},
		{ID: "bbb", CreatedAt: ts},
	}

	SortImagesNewestFirst(images)
	assert.Equal(t, "bbb", images[0].ID)
}

func TestImageInfo_HasRef(t *testing.T) {
	img := ImageInfo{
		ID:   "sha256:abc123",
		Tags: []string{"registry.example.com/webapp:v3", "registry.example.com/webapp:latest"},
	}

	assert.True(t, img.HasRef("sha256:abc123"))
	assert.True(t, img.HasRef("registry.example.com/webapp:v3"))
	assert.True(t, img.HasRef("registry.example.com/webapp:latest"))
	assert.False(t, img.HasRef("registry.example.com/webapp:v2"))
	assert.False(t, img.HasRef(""))
}

func TestContainerInfo_IsRunning(t *testing.T) {
	assert.True(t, ContainerInfo{Status: ContainerStatusRunning}.IsRunning())
	assert.False(t, ContainerInfo{Status: ContainerStatusExited}.IsRunning())
	assert.False(t, ContainerInfo{Status: ContainerStatusCreated}.IsRunning())
}

// =============================================================================
// Integration Tests (skip without a Docker daemon)
// =============================================================================

func TestPing_Success(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	assert.NoError(t, cli.Ping())
}

func TestCreateStartStopRemove(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	name := testPrefix + "lifecycle"
	id, err := cli.CreateContainer(ContainerSpec{
		Name:  name,
		Image: "alpine:latest",
		Labels: map[string]string{
			"com.switchyard.managed": "true",
		},
	})
	if err != nil {
		t.Skip("alpine image not available:", err)
	}
	defer cleanupContainer(t, cli, id)

	require.NotEmpty(t, id)

	info, err := cli.InspectContainer(id)
	require.NoError(t, err)
	assert.Equal(t, name, info.Name)
	assert.Equal(t, "true", info.Labels["com.switchyard.managed"])
}

func TestInspectContainer_NotFound(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	_, err := cli.InspectContainer("does-not-exist-switchyard")
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestListContainers_WithFilter(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	containers, err := cli.ListContainers(ListOptions{
		All: true,
		Filters: map[string]string{
			"label": "com.switchyard.managed=never-set",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestRemoveImage_NotFound(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	err := cli.RemoveImage("switchyard-no-such-image:none", false)
	assert.ErrorIs(t, err, ErrImageNotFound)
}
