package apidoc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docPath = "../../../" + DefaultPath

func TestLoadPublicDocument(t *testing.T) {
	doc, err := Load(context.Background(), docPath)
	require.NoError(t, err)

	assert.True(t, Documents(doc, "GET", "/api/affiliate/track"))
	assert.True(t, Documents(doc, "post", "/api/affiliate/payout"))
	assert.True(t, Documents(doc, "POST", "/api/admin/payouts/:id/settle"))
	assert.True(t, Documents(doc, "GET", "/api/admin/exports/:kind.xlsx"))
	assert.False(t, Documents(doc, "DELETE", "/api/affiliate/track"))
	assert.False(t, Documents(doc, "GET", "/api/unknown"))
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\ninfo:\n  title: x\npaths: {}\n"), 0o600))

	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

func TestOpenAPIPath(t *testing.T) {
	assert.Equal(t, "/api/admin/payouts/{id}/settle", OpenAPIPath("/api/admin/payouts/:id/settle"))
	assert.Equal(t, "/api/admin/exports/{kind}.xlsx", OpenAPIPath("/api/admin/exports/:kind.xlsx"))
	assert.Equal(t, "/api/checkout", OpenAPIPath("/api/checkout"))
}
