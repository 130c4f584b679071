package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}))
	return db
}

func insertOrder(t *testing.T, db *gorm.DB, id string, createdAt time.Time) {
	t.Helper()

	order := models.Order{
		ID:     id,
		UserID: "u1",
		Date:   createdAt,
		Items: []models.OrderItem{
			{ProductID: "p1", Quantity: 1, Name: "Steam Card"},
		},
		Total:         decimal.RequireFromString("10.00"),
		Status:        enums.OrderStatusCompleted,
		PaymentMethod: "Chargily Pay",
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	base := time.Now().Add(-time.Hour)
	insertOrder(t, db, "o1", base)
	insertOrder(t, db, "o2", base.Add(time.Minute))
	insertOrder(t, db, "o3", base.Add(2*time.Minute))

	repo := NewRepository(db)
	rows, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "o3", rows[0].ID)
	assert.Equal(t, "o1", rows[2].ID)
}

func TestRepositoryFindByID(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	insertOrder(t, db, "o1", time.Now())

	repo := NewRepository(db)
	row, err := repo.FindByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "u1", row.UserID)
	assert.Len(t, row.Items, 1)
	assert.True(t, row.Total.Equal(decimal.RequireFromString("10.00")))

	_, err = repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryAttachPayPalOrderID(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	insertOrder(t, db, "o1", time.Now())

	repo := NewRepository(db)
	affected, err := repo.AttachPayPalOrderID(context.Background(), "o1", "PAY-123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	row, err := repo.FindByID(context.Background(), "o1")
	require.NoError(t, err)
	require.NotNil(t, row.PayPalOrderID)
	assert.Equal(t, "PAY-123", *row.PayPalOrderID)

	affected, err = repo.AttachPayPalOrderID(context.Background(), "ghost", "PAY-456")
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestRepositoryInsertUsesCallerTransaction(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		order := models.Order{
			ID:     "o1",
			UserID: "u1",
			Date:   time.Now(),
			Total:  decimal.RequireFromString("5.00"),
			Status: enums.OrderStatusCompleted,
		}
		if err := repo.Insert(tx, &order); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "rolled back insert must not persist")
}
