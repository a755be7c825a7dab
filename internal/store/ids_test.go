package store

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentID(t *testing.T) {
	a, b := NewDocumentID(), NewDocumentID()
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "doc-"), a)
	_, err := uuid.Parse(strings.TrimPrefix(a, "doc-"))
	require.NoError(t, err)
}
