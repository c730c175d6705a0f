package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hotelier/config"
	"hotelier/infras/otel/mocks"
	"hotelier/internal/domains/booking/event"
	eventMocks "hotelier/internal/domains/booking/event/mocks"
	bookingMocks "hotelier/internal/domains/booking/mocks"
	"hotelier/internal/domains/booking/model"
	"hotelier/internal/domains/booking/model/dto"
	"hotelier/internal/domains/booking/service"
	customerMocks "hotelier/internal/domains/customer/mocks"
	roomMocks "hotelier/internal/domains/room/mocks"
	roomModel "hotelier/internal/domains/room/model"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/keylock"
)

// noopCache is a cache that always misses. Caching behavior is exercised
// separately; coordinator tests only need the service to fall through to the
// repositories.
type noopCache struct{}

func (noopCache) Save(context.Context, string, any, int) error { return nil }
func (noopCache) Get(context.Context, string, any) error       { return cache.CacheNil }
func (noopCache) Delete(context.Context, string) error         { return nil }
func (noopCache) Clear(context.Context, string) error          { return nil }

type bookingFixture struct {
	repo     *bookingMocks.MockBooking
	roomRepo *roomMocks.MockRoom
	custRepo *customerMocks.MockCustomer
	events   *eventMocks.MockPublisher
	svc      service.Booking
}

func newBookingFixture(t *testing.T, ctrl *gomock.Controller) *bookingFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	f := &bookingFixture{
		repo:     bookingMocks.NewMockBooking(ctrl),
		roomRepo: roomMocks.NewMockRoom(ctrl),
		custRepo: customerMocks.NewMockCustomer(ctrl),
		events:   eventMocks.NewMockPublisher(ctrl),
	}

	f.svc = service.New(f.repo, f.roomRepo, f.custRepo, cfg, noopCache{}, mocks.NewOtel(), keylock.New(), f.events)

	return f
}

// beginTestTx hands out a transaction the mocked BeginTx can return, so the
// commit and rollback calls inside the service hit a real driver.
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

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func testContext() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, "test-user-id")
}

func TestBookingService_Create(t *testing.T) {
	req := dto.CreateBookingRequest{
		CustomerID: "customer-1",
		RoomNumber: intPtr(101),
	}

	room := roomModel.Room{ID: "room-1", Number: 101}

	tests := []struct {
		name      string
		setupMock func(f *bookingFixture, sqlMock sqlmock.Sqlmock)
		wantName  string
	}{
		{
			name: "successful creation marks the room booked",
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
				f.repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.roomRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, true, fields[roomModel.FieldIsBooked])

						return nil
					})
				f.events.EXPECT().Publish(gomock.Any(), event.TypeBookingCreated, gomock.Any())
				sqlMock.ExpectCommit()
			},
		},
		{
			name: "unknown customer is a field error",
			setupMock: func(f *bookingFixture, _ sqlmock.Sqlmock) {
				f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
			},
			wantName: failure.NameValidationFailed,
		},
		{
			name: "unknown room is a field error",
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(roomModel.Room{}, nil)
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameValidationFailed,
		},
		{
			name: "occupied room is unavailable",
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(1, nil)
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameRoomUnavailable,
		},
		{
			name: "insert failure rolls back",
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
				f.repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("database error"))
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newBookingFixture(t, ctrl)

			tx, sqlMock := beginTestTx(t)
			f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil).AnyTimes()

			tt.setupMock(f, sqlMock)

			res, err := f.svc.Create(testContext(), req)

			if tt.wantName != constant.Empty {
				assert.Error(t, err)
				assert.Equal(t, tt.wantName, failure.GetName(err))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, req.CustomerID, res.CustomerID)
				assert.Equal(t, *req.RoomNumber, res.RoomNumber)
				assert.True(t, res.IsActive)
				assert.NoError(t, sqlMock.ExpectationsWereMet())
			}
		})
	}
}

// TestBookingService_CreateContention drives concurrent creations against one
// room. Exactly one must win; the rest must fail as unavailable, and the room
// must never hold more than one active booking.
func TestBookingService_CreateContention(t *testing.T) {
	const workers = 8

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "sqlmock")

	// The keyed lock serializes the transactional section, so the first
	// transaction commits and every later one rolls back.
	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()

	for range workers - 1 {
		sqlMock.ExpectBegin()
		sqlMock.ExpectRollback()
	}

	f.repo.EXPECT().BeginTx(gomock.Any()).
		DoAndReturn(func(context.Context) (*sqlx.Tx, error) { return sqlxDB.Beginx() }).
		Times(workers)

	var (
		mu     sync.Mutex
		active int
	)

	f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil).Times(workers)
	f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(roomModel.Room{ID: "room-1", Number: 101}, nil).
		Times(workers)
	f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *sqlx.Tx, any) (int, error) {
			mu.Lock()
			defer mu.Unlock()

			return active, nil
		}).
		Times(workers)
	f.repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *sqlx.Tx, model.Booking) error {
			mu.Lock()
			active++
			mu.Unlock()

			return nil
		}).
		Times(1)
	f.roomRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.events.EXPECT().Publish(gomock.Any(), event.TypeBookingCreated, gomock.Any()).Times(1)

	var (
		wg        sync.WaitGroup
		resultsMu sync.Mutex
		succeeded int
		rejected  int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Create(testContext(), dto.CreateBookingRequest{
				CustomerID: "customer-1",
				RoomNumber: intPtr(101),
			})

			resultsMu.Lock()
			defer resultsMu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case failure.Is(err, failure.NameRoomUnavailable):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, 1, active)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestBookingService_Update(t *testing.T) {
	activeBooking := model.Booking{ID: "booking-1", CustomerID: "customer-1", RoomNumber: 101, IsActive: true}
	inactiveBooking := model.Booking{ID: "booking-1", CustomerID: "customer-1", RoomNumber: 101, IsActive: false}
	room := roomModel.Room{ID: "room-1", Number: 101, IsBooked: true}

	tests := []struct {
		name      string
		req       dto.UpdateBookingRequest
		setupMock func(f *bookingFixture, sqlMock sqlmock.Sqlmock)
		wantName  string
		wantRes   func(t *testing.T, res dto.BookingResponse)
	}{
		{
			name: "deactivation frees the room",
			req:  dto.UpdateBookingRequest{IsActive: boolPtr(false)},
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(activeBooking, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(activeBooking, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, false, fields[model.FieldIsActive])

						return nil
					})
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
				f.roomRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, false, fields[roomModel.FieldIsBooked])

						return nil
					})
				f.events.EXPECT().Publish(gomock.Any(), event.TypeBookingDeactivated, gomock.Any())
				sqlMock.ExpectCommit()
			},
			wantRes: func(t *testing.T, res dto.BookingResponse) {
				assert.False(t, res.IsActive)
			},
		},
		{
			name: "reactivation loses to another active booking",
			req:  dto.UpdateBookingRequest{IsActive: boolPtr(true)},
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(inactiveBooking, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(inactiveBooking, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(1, nil)
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameRoomUnavailable,
		},
		{
			name: "reactivation of a free room succeeds",
			req:  dto.UpdateBookingRequest{IsActive: boolPtr(true)},
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(inactiveBooking, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(inactiveBooking, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).Times(2)
				f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.roomRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, true, fields[roomModel.FieldIsBooked])

						return nil
					})
				f.events.EXPECT().Publish(gomock.Any(), event.TypeBookingReactivated, gomock.Any())
				sqlMock.ExpectCommit()
			},
			wantRes: func(t *testing.T, res dto.BookingResponse) {
				assert.True(t, res.IsActive)
			},
		},
		{
			name: "customer reassignment leaves the room untouched",
			req:  dto.UpdateBookingRequest{CustomerID: "customer-2"},
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(activeBooking, nil)
				f.custRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(activeBooking, nil)
				f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				sqlMock.ExpectCommit()
			},
			wantRes: func(t *testing.T, res dto.BookingResponse) {
				assert.Equal(t, "customer-2", res.CustomerID)
			},
		},
		{
			name: "missing booking is not found",
			req:  dto.UpdateBookingRequest{IsActive: boolPtr(false)},
			setupMock: func(f *bookingFixture, _ sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)
			},
			wantName: failure.NameNotFound,
		},
		{
			name: "booking deleted between read and lock is not found",
			req:  dto.UpdateBookingRequest{IsActive: boolPtr(false)},
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(activeBooking, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newBookingFixture(t, ctrl)

			tx, sqlMock := beginTestTx(t)
			f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil).AnyTimes()

			tt.setupMock(f, sqlMock)

			res, err := f.svc.Update(testContext(), tt.req, "booking-1")

			if tt.wantName != constant.Empty {
				assert.Error(t, err)
				assert.Equal(t, tt.wantName, failure.GetName(err))

				return
			}

			assert.NoError(t, err)
			assert.NoError(t, sqlMock.ExpectationsWereMet())

			if tt.wantRes != nil {
				tt.wantRes(t, res)
			}
		})
	}
}

func TestBookingService_Delete(t *testing.T) {
	booking := model.Booking{ID: "booking-1", CustomerID: "customer-1", RoomNumber: 101, IsActive: true}
	room := roomModel.Room{ID: "room-1", Number: 101, IsBooked: true}

	tests := []struct {
		name      string
		setupMock func(f *bookingFixture, sqlMock sqlmock.Sqlmock)
		wantName  string
	}{
		{
			name: "deletion recomputes the room flag",
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(booking, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(booking, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room, nil)
				f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.repo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
				f.roomRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, false, fields[roomModel.FieldIsBooked])

						return nil
					})
				f.events.EXPECT().Publish(gomock.Any(), event.TypeBookingDeleted, gomock.Any())
				sqlMock.ExpectCommit()
			},
		},
		{
			name: "deleting a booking whose room is gone skips the sync",
			setupMock: func(f *bookingFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(booking, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(booking, nil)
				f.roomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(roomModel.Room{}, nil)
				f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.events.EXPECT().Publish(gomock.Any(), event.TypeBookingDeleted, gomock.Any())
				sqlMock.ExpectCommit()
			},
		},
		{
			name: "missing booking is not found",
			setupMock: func(f *bookingFixture, _ sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)
			},
			wantName: failure.NameNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newBookingFixture(t, ctrl)

			tx, sqlMock := beginTestTx(t)
			f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil).AnyTimes()

			tt.setupMock(f, sqlMock)

			err := f.svc.Delete(testContext(), "booking-1")

			if tt.wantName != constant.Empty {
				assert.Error(t, err)
				assert.Equal(t, tt.wantName, failure.GetName(err))

				return
			}

			assert.NoError(t, err)
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestBookingService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	t.Run("missing booking is not found", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		_, err := f.svc.Get(testContext(), "no-such-booking")

		assert.Error(t, err)
		assert.Equal(t, failure.NameNotFound, failure.GetName(err))
	})

	t.Run("existing booking is returned", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "booking-1", CustomerID: "customer-1", RoomNumber: 101, IsActive: true}, nil)

		res, err := f.svc.Get(testContext(), "booking-1")

		assert.NoError(t, err)
		assert.Equal(t, "booking-1", res.ID)
		assert.Equal(t, 101, res.RoomNumber)
	})
}
