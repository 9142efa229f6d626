package s3service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://blood-bank-data/tables/donors.csv", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "blood-bank-data", bucket)
	assert.Equal(t, "tables/donors.csv", key)

	bucket, key, err = ParseURI("s3:///inventory.csv", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", bucket)
	assert.Equal(t, "inventory.csv", key)
}

func TestParseURI_Invalid(t *testing.T) {
	for _, location := range []string{
		"data/donors.csv",
		"s3://bucket-only",
		"s3://bucket/",
		"s3:///missing-default",
	} {
		_, _, err := ParseURI(location, "")
		assert.ErrorIs(t, err, ErrInvalidURI, location)
	}
}

func TestIsURI(t *testing.T) {
	assert.True(t, IsURI("s3://bucket/key"))
	assert.False(t, IsURI("/tmp/s3://bucket"))
}
