package service_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hotelier/config"
	"hotelier/infras/otel/mocks"
	bookingMocks "hotelier/internal/domains/booking/mocks"
	roomMocks "hotelier/internal/domains/room/mocks"
	"hotelier/internal/domains/room/model"
	"hotelier/internal/domains/room/model/dto"
	"hotelier/internal/domains/room/service"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/keylock"
)

type noopCache struct{}

func (noopCache) Save(context.Context, string, any, int) error { return nil }
func (noopCache) Get(context.Context, string, any) error       { return cache.CacheNil }
func (noopCache) Delete(context.Context, string) error         { return nil }
func (noopCache) Clear(context.Context, string) error          { return nil }

type roomFixture struct {
	repo        *roomMocks.MockRoom
	bookingRepo *bookingMocks.MockBooking
	svc         service.Room
}

func newRoomFixture(t *testing.T, ctrl *gomock.Controller) *roomFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	f := &roomFixture{
		repo:        roomMocks.NewMockRoom(ctrl),
		bookingRepo: bookingMocks.NewMockBooking(ctrl),
	}

	f.svc = service.New(f.repo, f.bookingRepo, cfg, noopCache{}, mocks.NewOtel(), keylock.New())

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

func intPtr(v int) *int { return &v }

func testContext() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, "test-user-id")
}

func TestRoomService_Create(t *testing.T) {
	req := dto.CreateRoomRequest{Number: intPtr(101), Floor: "1"}

	t.Run("successful creation starts vacant", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newRoomFixture(t, ctrl)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, room model.Room) error {
				assert.False(t, room.IsBooked)

				return nil
			})

		res, err := f.svc.Create(testContext(), req)

		require.NoError(t, err)
		assert.Equal(t, 101, res.Number)
		assert.False(t, res.IsBooked)
	})

	t.Run("duplicate number is a field-level validation failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newRoomFixture(t, ctrl)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)

		_, err := f.svc.Create(testContext(), req)

		require.Error(t, err)
		assert.Equal(t, failure.NameValidationFailed, failure.GetName(err))
		assert.Contains(t, failure.GetFields(err), model.FieldNumber)
	})

	t.Run("unique index violation on insert is a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newRoomFixture(t, ctrl)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			Return(&pq.Error{Code: pq.ErrorCode(constant.PqErrorCodeUniqueViolation)})

		_, err := f.svc.Create(testContext(), req)

		assert.Error(t, err)
		assert.Equal(t, failure.NameConflict, failure.GetName(err))
	})
}

func TestRoomService_Update(t *testing.T) {
	stored := model.Room{ID: "room-1", Number: 101, Floor: "1"}

	t.Run("floor change", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newRoomFixture(t, ctrl)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) error {
				assert.Equal(t, "2", fields[model.FieldFloor])
				assert.NotContains(t, fields, model.FieldNumber)
				assert.NotContains(t, fields, model.FieldIsBooked)

				return nil
			})

		res, err := f.svc.Update(testContext(), dto.UpdateRoomRequest{Floor: "2"}, "room-1")

		assert.NoError(t, err)
		assert.Equal(t, "2", res.Floor)
		assert.Equal(t, 101, res.Number)
	})

	t.Run("missing room is not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newRoomFixture(t, ctrl)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)

		_, err := f.svc.Update(testContext(), dto.UpdateRoomRequest{Floor: "2"}, "no-such-room")

		assert.Error(t, err)
		assert.Equal(t, failure.NameNotFound, failure.GetName(err))
	})
}

func TestRoomService_Delete(t *testing.T) {
	stored := model.Room{ID: "room-1", Number: 101}

	tests := []struct {
		name      string
		cascade   bool
		setupMock func(f *roomFixture, sqlMock sqlmock.Sqlmock)
		wantName  string
	}{
		{
			name: "room without bookings is deleted",
			setupMock: func(f *roomFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(stored, nil)
				f.bookingRepo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
				f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				sqlMock.ExpectCommit()
			},
		},
		{
			name: "bookings block the delete without cascade",
			setupMock: func(f *roomFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(stored, nil)
				f.bookingRepo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(2, nil)
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameConflict,
		},
		{
			name:    "cascade removes the bookings first",
			cascade: true,
			setupMock: func(f *roomFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(stored, nil)
				f.bookingRepo.EXPECT().CountTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(2, nil)
				f.bookingRepo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				sqlMock.ExpectCommit()
			},
		},
		{
			name: "missing room is not found",
			setupMock: func(f *roomFixture, _ sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)
			},
			wantName: failure.NameNotFound,
		},
		{
			name: "room deleted between read and lock is not found",
			setupMock: func(f *roomFixture, sqlMock sqlmock.Sqlmock) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
				f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.Room{}, nil)
				sqlMock.ExpectRollback()
			},
			wantName: failure.NameNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newRoomFixture(t, ctrl)

			tx, sqlMock := beginTestTx(t)
			f.repo.EXPECT().BeginTx(gomock.Any()).Return(tx, nil).AnyTimes()

			tt.setupMock(f, sqlMock)

			err := f.svc.Delete(testContext(), "room-1", tt.cascade)

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
