package chunker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/archive"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

var dolibarrHeaders = []string{"Réf.* (p.ref)", "Libellé* (p.label)"}

func makeRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("REF%04d", i+1), "Produit"}
	}
	return rows
}

// recorder captures what the chunker hands to its collaborators.
type recorder struct {
	sheets []string
	sizes  []int
	files  []string
}

func (r *recorder) Serialize(sheetName string, table types.StringTable) ([]byte, error) {
	r.sheets = append(r.sheets, sheetName)
	r.sizes = append(r.sizes, table.Len())
	return []byte(sheetName), nil
}

func (r *recorder) Package(_ context.Context, files []archive.File) ([]byte, error) {
	for _, f := range files {
		r.files = append(r.files, f.Name)
	}
	return []byte("zip"), nil
}

func TestIsDolibarrFormat(t *testing.T) {
	assert.True(t, IsDolibarrFormat(dolibarrHeaders))
	assert.True(t, IsDolibarrFormat([]string{"Name", "Poids (P.WEIGHT)"}))
	assert.False(t, IsDolibarrFormat([]string{"Ref", "Label"}))
	assert.False(t, IsDolibarrFormat([]string{"(p.)"}))
	assert.False(t, IsDolibarrFormat(nil))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		sizes []int
	}{
		{"empty", 0, []int{}},
		{"one page", 10, []int{10}},
		{"exact multiple", 1600, []int{800, 800}},
		{"remainder", 1601, []int{800, 800, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := Paginate(dolibarrHeaders, makeRows(tt.rows), MaxRowsPerFile, "produits")

			sizes := make([]int, len(pages))
			for i, p := range pages {
				sizes[i] = p.Table.Len()
				assert.Equal(t, fmt.Sprintf("produits_%d.xlsx", i+1), p.FileName)
				assert.Equal(t, dolibarrHeaders, p.Table.Headers)
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}

func TestPaginateKeepsRowOrder(t *testing.T) {
	pages := Paginate(dolibarrHeaders, makeRows(5), 2, "p")
	require.Len(t, pages, 3)
	assert.Equal(t, "REF0003", pages[1].Table.Rows[0][0])
	assert.Equal(t, "REF0005", pages[2].Table.Rows[0][0])
}

func TestBuildSplitsDolibarrOutput(t *testing.T) {
	rec := &recorder{}
	out, err := Build(context.Background(), dolibarrHeaders, makeRows(1601), ProductsPolicy(), rec, rec)
	require.NoError(t, err)

	assert.True(t, out.IsArchive)
	assert.Equal(t, 3, out.FileCount)
	assert.Equal(t, []byte("zip"), out.Data)
	assert.Equal(t, []int{800, 800, 1}, rec.sizes)
	assert.Equal(t, []string{"produits_1.xlsx", "produits_2.xlsx", "produits_3.xlsx"}, rec.files)
	assert.Equal(t, []string{"Produits", "Produits", "Produits"}, rec.sheets)
}

func TestBuildSingleTable(t *testing.T) {
	rec := &recorder{}
	out, err := Build(context.Background(), dolibarrHeaders, makeRows(800), ProductsPolicy(), rec, rec)
	require.NoError(t, err)

	assert.False(t, out.IsArchive)
	assert.Equal(t, 1, out.FileCount)
	assert.Equal(t, []int{800}, rec.sizes)
	assert.Empty(t, rec.files)
}

func TestBuildFusionOnlySplitsDolibarrSchemas(t *testing.T) {
	rec := &recorder{}
	out, err := Build(context.Background(), []string{"Ref", "Label"}, makeRows(2000), FusionPolicy(), rec, rec)
	require.NoError(t, err)
	assert.False(t, out.IsArchive)
	assert.Equal(t, 1, out.FileCount)
	assert.Equal(t, []int{2000}, rec.sizes)

	rec = &recorder{}
	out, err = Build(context.Background(), dolibarrHeaders, makeRows(2000), FusionPolicy(), rec, rec)
	require.NoError(t, err)
	assert.True(t, out.IsArchive)
	assert.Equal(t, 3, out.FileCount)
	assert.Equal(t, []string{"fusion_1.xlsx", "fusion_2.xlsx", "fusion_3.xlsx"}, rec.files)
}

func TestBuildModificationsNeverSplit(t *testing.T) {
	rec := &recorder{}
	out, err := Build(context.Background(), dolibarrHeaders, makeRows(5000), ModificationsPolicy(), rec, rec)
	require.NoError(t, err)
	assert.False(t, out.IsArchive)
	assert.Equal(t, []string{"Modifications"}, rec.sheets)
}

func TestBuildPropagatesErrors(t *testing.T) {
	failing := SerializerFunc(func(string, types.StringTable) ([]byte, error) {
		return nil, errors.New("disk full")
	})
	_, err := Build(context.Background(), dolibarrHeaders, makeRows(3), ProductsPolicy(), failing, nil)
	assert.ErrorContains(t, err, "disk full")

	rec := &recorder{}
	badZip := PackagerFunc(func(context.Context, []archive.File) ([]byte, error) {
		return nil, errors.New("no space")
	})
	_, err = Build(context.Background(), dolibarrHeaders, makeRows(801), ProductsPolicy(), rec, badZip)
	assert.ErrorContains(t, err, "no space")
}

func TestBuildWithDefaultCollaborators(t *testing.T) {
	out, err := Build(context.Background(), dolibarrHeaders, makeRows(801), ProductsPolicy(), nil, nil)
	require.NoError(t, err)
	require.True(t, out.IsArchive)

	files, err := archive.Extract(out.Data, ".xlsx")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "produits_2.xlsx", files[1].Name)

	f, err := excelize.OpenReader(bytes.NewReader(files[1].Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Produits")
	require.NoError(t, err)
	assert.Equal(t, [][]string{dolibarrHeaders, {"REF0801", "Produit"}}, rows)
}
