package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo-estimator/apperrors"
	"immo-estimator/models"
)

func TestDecodeCSVMissingTokens(t *testing.T) {
	in := "id,price,locality\n1,100000,Gent\n2,NaN,\n3,,None\n"

	ds, err := DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price", "locality"}, ds.Columns)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, models.Str("Gent"), ds.Rows[0][2])
	assert.True(t, ds.Rows[1][1].IsNull())
	assert.True(t, ds.Rows[1][2].IsNull())
	assert.True(t, ds.Rows[2][2].IsNull())
}

func TestDecodeCSVShortRecord(t *testing.T) {
	ds, err := DecodeCSV(strings.NewReader("a,b,c\n1,2\n"))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.True(t, ds.Rows[0][2].IsNull())
}

func TestReadCSVNotFound(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, apperrors.ErrSourceNotFound))
}

func TestWriteCSVCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "clean.csv")
	ds := models.NewDataset([]string{"price", "note"})
	ds.Rows = [][]models.Cell{
		{models.Int(150000), models.Null()},
		{models.Float(2.5), models.Str("a, b")},
	}

	require.NoError(t, WriteCSV(path, ds))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "price,note\n150000,\n2.5,\"a, b\"\n", string(raw))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, back.Columns)
	assert.True(t, back.Rows[0][1].IsNull())
}
