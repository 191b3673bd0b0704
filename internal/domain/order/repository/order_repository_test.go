package repository

import (
	"testing"
	"time"

	"shopcore/internal/domain/order/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const testTenant = "4f2c8a7e-0000-0000-0000-000000000001"

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestGetByID(t *testing.T) {
	t.Run("Query is tenant scoped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db)

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "order_no", "status", "payment_status"}).
			AddRow("order-1", testTenant, "20260101120000abcd1234", model.StatusPending, model.PaymentPending)
		// gorm 会把字符串条件括起来并追加软删除过滤，LIMIT 也是参数
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE \(id = \$1 AND tenant_id = \$2\)`).
			WithArgs("order-1", testTenant, 1).
			WillReturnRows(rows)

		order, err := repo.GetByID(testTenant, "order-1")

		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, model.StatusPending, order.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Order belonging to another tenant is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "orders"`).
			WithArgs("order-1", "other-tenant", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID("other-tenant", "order-1")

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestTransitionStatus(t *testing.T) {
	history := model.StatusHistory{{Timestamp: time.Now(), From: model.StatusPending, To: model.StatusConfirmed}}

	t.Run("Conditional update carries status precondition", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db)

		mock.ExpectExec(`UPDATE "orders" SET .+ WHERE \(id = .+ AND tenant_id = .+ AND status = .+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.TransitionStatus(testTenant, "order-1", model.StatusPending, model.StatusConfirmed,
			time.Now(), history, nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Zero rows affected surfaces as a conflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db)

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.TransitionStatus(testTenant, "order-1", model.StatusPending, model.StatusConfirmed,
			time.Now(), history, nil)

		assert.ErrorIs(t, err, ErrStatusConflict)
	})
}

func TestUpdatePaymentStatus(t *testing.T) {
	t.Run("Zero rows affected surfaces as a conflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db)

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePaymentStatus(testTenant, "order-1", model.PaymentPending, model.PaymentUploaded, nil)

		assert.ErrorIs(t, err, ErrStatusConflict)
	})
}
