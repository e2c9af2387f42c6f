package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrecords-assistant/internal/testutil"
)

func TestReferenceRepository_ColumnsAndSearch(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Exec(`CREATE TABLE normativa_articulos (id INTEGER PRIMARY KEY, numero TEXT, texto TEXT, nota TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE normativa_anexos (id INTEGER PRIMARY KEY, titulo TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO normativa_articulos (numero, texto, nota) VALUES ('5', 'Plazo de contratación', NULL), ('6', 'Contratación directa', 'x'), ('7', 'Otro', 'y')`).Error)

	columns, err := repo.Columns(ctx, "normativa_articulos")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "numero", "texto", "nota"}, columns)

	empty, err := repo.Columns(ctx, "normativa_anexos")
	require.NoError(t, err)
	assert.Empty(t, empty)

	missing, err := repo.Columns(ctx, "normativa_inexistente")
	require.NoError(t, err)
	assert.Empty(t, missing)

	rows, err := repo.Search(ctx, "normativa_articulos", "texto", "contratación", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 4)
	assert.Equal(t, "numero", rows[0][1].Name)
	assert.Equal(t, "5", rows[0][1].Value)
	assert.Nil(t, rows[0][3].Value)
}

func TestReferenceRepository_SearchUnknownColumn(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReferenceRepository(db)

	require.NoError(t, db.Exec(`CREATE TABLE normativa_literales (id INTEGER PRIMARY KEY, texto TEXT)`).Error)

	_, err := repo.Search(context.Background(), "normativa_literales", "no_such_column", "x", 2)
	assert.Error(t, err)
}
