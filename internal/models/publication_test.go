package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicationSetPublished(t *testing.T) {
	first := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	var p Publication
	p.SetPublished(true, first)
	require.NotNil(t, p.PublishedAt)
	assert.True(t, p.IsPublished)
	assert.Equal(t, first, *p.PublishedAt)

	// already published: timestamp is kept
	p.SetPublished(true, later)
	assert.Equal(t, first, *p.PublishedAt)

	p.SetPublished(false, later)
	assert.False(t, p.IsPublished)
	assert.Nil(t, p.PublishedAt)

	p.SetPublished(true, later)
	assert.Equal(t, later, *p.PublishedAt)
}

func TestPublicationSetPublishedRepairsMissingTimestamp(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	p := Publication{IsPublished: true}

	p.SetPublished(true, now)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, now, *p.PublishedAt)
}
