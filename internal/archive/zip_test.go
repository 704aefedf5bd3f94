package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageAndExtract(t *testing.T) {
	data, err := Package(context.Background(), []File{
		{Name: "produits_1.xlsx", Data: []byte("first")},
		{Name: "produits_2.XLSX", Data: []byte("second")},
		{Name: "notes.txt", Data: []byte("ignored")},
		{Name: "__MACOSX/._produits_1.xlsx", Data: []byte("fork")},
	})
	require.NoError(t, err)

	files, err := Extract(data, ".xlsx")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "produits_1.xlsx", files[0].Name)
	assert.Equal(t, []byte("first"), files[0].Data)
	assert.Equal(t, "produits_2.XLSX", files[1].Name)
}

func TestPackageHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Package(ctx, []File{{Name: "a.xlsx", Data: []byte("x")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := Extract([]byte("not a zip"), ".xlsx")
	assert.Error(t, err)
}

func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("batch.ZIP"))
	assert.False(t, IsArchive("catalog.xlsx"))
}
