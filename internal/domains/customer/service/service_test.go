package service_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hotelier/config"
	"hotelier/infras/otel/mocks"
	bookingMocks "hotelier/internal/domains/booking/mocks"
	bookingModel "hotelier/internal/domains/booking/model"
	bookingSvcMocks "hotelier/internal/domains/booking/service/mocks"
	customerMocks "hotelier/internal/domains/customer/mocks"
	"hotelier/internal/domains/customer/model"
	"hotelier/internal/domains/customer/model/dto"
	"hotelier/internal/domains/customer/service"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
)

type noopCache struct{}

func (noopCache) Save(context.Context, string, any, int) error { return nil }
func (noopCache) Get(context.Context, string, any) error       { return cache.CacheNil }
func (noopCache) Delete(context.Context, string) error         { return nil }
func (noopCache) Clear(context.Context, string) error          { return nil }

type customerFixture struct {
	repo        *customerMocks.MockCustomer
	bookingRepo *bookingMocks.MockBooking
	bookingSvc  *bookingSvcMocks.MockBooking
	svc         service.Customer
}

func newCustomerFixture(t *testing.T, ctrl *gomock.Controller) *customerFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	f := &customerFixture{
		repo:        customerMocks.NewMockCustomer(ctrl),
		bookingRepo: bookingMocks.NewMockBooking(ctrl),
		bookingSvc:  bookingSvcMocks.NewMockBooking(ctrl),
	}

	f.svc = service.New(f.repo, f.bookingRepo, f.bookingSvc, cfg, noopCache{}, mocks.NewOtel())

	return f
}

func beginTestTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()

	tx, err := sqlx.NewDb(db, "sqlmock").Beginx()
	require.NoError(t, err)

	return tx, mock
}

func testContext() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, "test-user-id")
}

func TestCustomerService_Create(t *testing.T) {
	req := dto.CreateCustomerRequest{FirstName: "Ada", LastName: "Lovelace"}

	t.Run("successful creation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

		res, err := f.svc.Create(testContext(), req)

		require.NoError(t, err)
		assert.Equal(t, "Ada", res.FirstName)
		assert.Equal(t, "Lovelace", res.LastName)
	})

	t.Run("duplicate name pair is a field-level validation failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)

		_, err := f.svc.Create(testContext(), req)

		require.Error(t, err)
		assert.Equal(t, failure.NameValidationFailed, failure.GetName(err))
		assert.Contains(t, failure.GetFields(err), model.FieldFirstName)
		assert.Contains(t, failure.GetFields(err), model.FieldLastName)
	})
}

func TestCustomerService_Update(t *testing.T) {
	stored := model.Customer{ID: "customer-1", FirstName: "Ada", LastName: "Lovelace"}

	t.Run("rename to a taken name pair is a field-level validation failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)

		_, err := f.svc.Update(testContext(), dto.UpdateCustomerRequest{LastName: "Byron"}, "customer-1")

		require.Error(t, err)
		assert.Equal(t, failure.NameValidationFailed, failure.GetName(err))
		assert.Contains(t, failure.GetFields(err), model.FieldLastName)
	})

	t.Run("contact edit skips the uniqueness check", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		res, err := f.svc.Update(testContext(), dto.UpdateCustomerRequest{PhoneNumber: "555-0100"}, "customer-1")

		assert.NoError(t, err)
		assert.Equal(t, "555-0100", res.PhoneNumber)
	})
}

func TestCustomerService_Delete(t *testing.T) {
	stored := model.Customer{ID: "customer-1", FirstName: "Ada", LastName: "Lovelace"}
	bookings := []bookingModel.Booking{
		{ID: "booking-1", CustomerID: "customer-1", RoomNumber: 101, IsActive: true},
		{ID: "booking-2", CustomerID: "customer-1", RoomNumber: 102, IsActive: false},
	}

	t.Run("bookings block the delete without cascade", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings, nil)

		err := f.svc.Delete(testContext(), "customer-1", false)

		assert.Error(t, err)
		assert.Equal(t, failure.NameConflict, failure.GetName(err))
	})

	t.Run("cascade routes each booking through the coordinator", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)

		tx, sqlMock := beginTestTx(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings, nil)
		f.bookingSvc.EXPECT().Delete(gomock.Any(), "booking-1").Return(nil)
		f.bookingSvc.EXPECT().Delete(gomock.Any(), "booking-2").Return(nil)
		f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil)
		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
		f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		sqlMock.ExpectCommit()

		err := f.svc.Delete(testContext(), "customer-1", true)

		assert.NoError(t, err)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("booking created during the cascade turns into a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)

		tx, sqlMock := beginTestTx(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings[:1], nil)
		f.bookingSvc.EXPECT().Delete(gomock.Any(), "booking-1").Return(nil)
		f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil)
		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(1, nil)
		sqlMock.ExpectRollback()

		err := f.svc.Delete(testContext(), "customer-1", true)

		assert.Error(t, err)
		assert.Equal(t, failure.NameConflict, failure.GetName(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("customer without bookings deletes without cascade", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)

		tx, sqlMock := beginTestTx(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().GetAll(gomock.Any(), gDto.QueryParams{}, gomock.Any()).Return(nil, nil)
		f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil)
		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(stored, nil)
		f.bookingRepo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
		f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		sqlMock.ExpectCommit()

		err := f.svc.Delete(testContext(), "customer-1", false)

		assert.NoError(t, err)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("missing customer is not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newCustomerFixture(t, ctrl)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Customer{}, nil)

		err := f.svc.Delete(testContext(), "no-such-customer", false)

		assert.Error(t, err)
		assert.Equal(t, failure.NameNotFound, failure.GetName(err))
	})
}
