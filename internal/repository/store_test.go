package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"portal/internal/apperror"
	"portal/internal/database"
	"portal/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection("sqlite://"+filepath.Join(t.TempDir(), "store.db"), zap.NewNop())
	require.NoError(t, err)
	return db
}

func TestStore_ListOrderAndArchive(t *testing.T) {
	db := openTestDB(t)
	repo := NewCompanyRepository(db)
	ctx := context.Background()

	for _, c := range []model.Company{
		{Name: "Beta"},
		{Name: "Alpha"},
		{Name: "Gamma", Base: model.Base{Archived: true}},
	} {
		require.NoError(t, repo.Create(ctx, &c))
	}

	live, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10, OrderBy: []string{"name"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, live, 2)
	assert.Equal(t, "Alpha", live[0].Name)

	all, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10, IncludeArchived: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.True(t, all[2].Archived, "archived rows sort last")

	page2, _, err := repo.List(ctx, ListOptions{Page: 2, Limit: 1, OrderBy: []string{"-name"}})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "Alpha", page2[0].Name)

	_, _, err = repo.List(ctx, ListOptions{Page: 1, Limit: 10, OrderBy: []string{"description"}})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, _, err = repo.List(ctx, ListOptions{Page: 1, Limit: 10, OwnerID: ptrUUID(uuid.New())})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "companies carry no owner")
}

func TestStore_GetAndDeleteNotFound(t *testing.T) {
	repo := NewTaskRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, apperror.Is(repo.Delete(ctx, uuid.New()), apperror.KindNotFound))
}

func TestTransactionManager_RollsBackAndNests(t *testing.T) {
	db := openTestDB(t)
	tm := NewTransactionManager(db)
	repo := NewCompanyRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	assert.False(t, InTx(ctx))
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		assert.True(t, InTx(txCtx))
		require.NoError(t, repo.Create(txCtx, &model.Company{Name: "Kept"}))

		// A failing nested call rolls back to its savepoint only.
		nested := tm.RunInTx(txCtx, func(inner context.Context) error {
			require.NoError(t, repo.Create(inner, &model.Company{Name: "Dropped"}))
			return boom
		})
		assert.ErrorIs(t, nested, boom)
		return nil
	})
	require.NoError(t, err)

	err = tm.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Create(txCtx, &model.Company{Name: "Rolled back"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	companies, _, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Kept", companies[0].Name)
}

func TestAuditRepository_ListFilters(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t))
	ctx := context.Background()
	invoiceID := uuid.NewString()

	for _, l := range []model.AuditLog{
		{Action: model.ActionCreate, EntityKind: model.KindInvoice, EntityID: invoiceID},
		{Action: model.ActionUpdate, EntityKind: model.KindInvoice, EntityID: invoiceID},
		{Action: model.ActionCreate, EntityKind: model.KindTimeEntry, EntityID: uuid.NewString()},
	} {
		require.NoError(t, repo.Log(ctx, &l))
	}

	logs, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10, Filters: map[string]interface{}{"entity_id": invoiceID}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	_, total, err = repo.List(ctx, ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, _, err = repo.List(ctx, ListOptions{Page: 1, Limit: 10, IncludeArchived: true, Filters: map[string]interface{}{"details": "x"}})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }
