package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotelier/config"
	"hotelier/infras/otel"
	"hotelier/internal/domains/booking/event"
	"hotelier/internal/domains/booking/model"
	"hotelier/internal/domains/booking/model/dto"
	"hotelier/internal/domains/booking/repository"
	custModel "hotelier/internal/domains/customer/model"
	custRepo "hotelier/internal/domains/customer/repository"
	roomModel "hotelier/internal/domains/room/model"
	roomRepo "hotelier/internal/domains/room/repository"
	"hotelier/shared"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
	"hotelier/shared/keylock"
	"hotelier/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

// Booking coordinates booking state transitions. Every operation that touches
// a booking's active flag also recomputes the owning room's is_booked flag in
// the same transaction, so the two can never be observed out of sync.
type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	Update(ctx context.Context, req dto.UpdateBookingRequest, id string) (dto.BookingResponse, error)
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo     repository.Booking
	roomRepo roomRepo.Room
	custRepo custRepo.Customer
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	locks    *keylock.KeyedMutex
	events   event.Publisher
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	custRepo custRepo.Customer,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	locks *keylock.KeyedMutex,
	events event.Publisher,
) Booking {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		custRepo: custRepo,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		locks:    locks,
		events:   events,
	}
}

func roomSyncFields(isBooked bool, username string) map[string]any {
	return map[string]any{
		roomModel.FieldIsBooked:    isBooked,
		constant.FieldDateModified: timezone.Now(),
		constant.FieldModifiedBy:   username,
	}
}

func rollbackOnError(tx *sqlx.Tx, err error) {
	if err == nil {
		return
	}

	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		log.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	customerExists, err := s.custRepo.Exist(ctx, shared.FilterByID(req.CustomerID, custModel.FieldID, custModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if customer exists")

		return res, fmt.Errorf("failed to check if customer exists: %w", err)
	}

	if !customerExists {
		return res, failure.FieldError(model.FieldCustomerID, "customer does not exist") // nolint:wrapcheck
	}

	unlock := s.locks.Lock(roomModel.LockKey(*req.RoomNumber))
	defer unlock()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { rollbackOnError(tx, err) }()

	// Row lock on the room serializes concurrent transitions across
	// processes. The in-memory lock above only covers this one.
	room, err := s.roomRepo.GetForUpdateTx(ctx, tx, roomModel.FilterByNumber(*req.RoomNumber))
	if err != nil {
		log.Error().Err(err).Msg("failed to lock room")

		return res, fmt.Errorf("failed to lock room: %w", err)
	}

	if room.ID == constant.Empty {
		return res, failure.FieldError(model.FieldRoomNumber, "room does not exist") // nolint:wrapcheck
	}

	active, err := s.repo.CountTx(ctx, tx, model.FilterActiveByRoom(*req.RoomNumber))
	if err != nil {
		log.Error().Err(err).Msg("failed to count active bookings")

		return res, fmt.Errorf("failed to count active bookings: %w", err)
	}

	if active > 0 {
		return res, failure.RoomUnavailable(fmt.Sprintf("room %d already has an active booking", *req.RoomNumber)) // nolint:wrapcheck
	}

	booking := req.ToModel(user)

	if err = s.repo.InsertTx(ctx, tx, booking); err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, fmt.Errorf("failed to create booking: %w", err)
	}

	if err = s.roomRepo.UpdateTx(ctx, tx, roomSyncFields(true, user), roomModel.FilterByNumber(*req.RoomNumber)); err != nil {
		log.Error().Err(err).Msg("failed to mark room booked")

		return res, fmt.Errorf("failed to mark room booked: %w", err)
	}

	if err = tx.Commit(); err != nil {
		log.Error().Err(err).Msg("failed to commit booking creation")

		return res, fmt.Errorf("failed to commit booking creation: %w", err)
	}

	s.invalidate(ctx, booking.ID)
	s.events.Publish(ctx, event.TypeBookingCreated, booking)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateBookingRequest, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	booking, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if req.CustomerID != constant.Empty && req.CustomerID != booking.CustomerID {
		customerExists, err := s.custRepo.Exist(ctx, shared.FilterByID(req.CustomerID, custModel.FieldID, custModel.TableName))
		if err != nil {
			log.Error().Err(err).Msg("failed to check if customer exists")

			return res, fmt.Errorf("failed to check if customer exists: %w", err)
		}

		if !customerExists {
			return res, failure.FieldError(model.FieldCustomerID, "customer does not exist") // nolint:wrapcheck
		}
	}

	unlock := s.locks.Lock(roomModel.LockKey(booking.RoomNumber))
	defer unlock()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { rollbackOnError(tx, err) }()

	// Re-read under lock: the booking may have flipped or vanished since the
	// unlocked read above.
	booking, err = s.repo.GetForUpdateTx(ctx, tx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to lock booking")

		return res, fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	updatedFields := shared.TransformFields(req, user)
	eventType := constant.Empty

	if req.IsActive != nil && *req.IsActive != booking.IsActive {
		if _, err = s.roomRepo.GetForUpdateTx(ctx, tx, roomModel.FilterByNumber(booking.RoomNumber)); err != nil {
			log.Error().Err(err).Msg("failed to lock room")

			return res, fmt.Errorf("failed to lock room: %w", err)
		}

		if *req.IsActive {
			// Reactivation contends for the room like a fresh booking does.
			var active int

			active, err = s.repo.CountTx(ctx, tx, model.FilterActiveByRoomExcluding(booking.RoomNumber, booking.ID))
			if err != nil {
				log.Error().Err(err).Msg("failed to count active bookings")

				return res, fmt.Errorf("failed to count active bookings: %w", err)
			}

			if active > 0 {
				err = failure.RoomUnavailable(fmt.Sprintf("room %d already has an active booking", booking.RoomNumber))

				return res, err // nolint:wrapcheck
			}

			eventType = event.TypeBookingReactivated
		} else {
			eventType = event.TypeBookingDeactivated
		}

		updatedFields[model.FieldIsActive] = *req.IsActive
		booking.IsActive = *req.IsActive
	}

	if err = s.repo.UpdateTx(ctx, tx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update booking")

		return res, fmt.Errorf("failed to update booking: %w", err)
	}

	if eventType != constant.Empty {
		// is_booked is recomputed from the surviving active bookings rather
		// than written blindly from this transition.
		var active int

		active, err = s.repo.CountTx(ctx, tx, model.FilterActiveByRoomExcluding(booking.RoomNumber, booking.ID))
		if err != nil {
			log.Error().Err(err).Msg("failed to count active bookings")

			return res, fmt.Errorf("failed to count active bookings: %w", err)
		}

		isBooked := booking.IsActive || active > 0
		if err = s.roomRepo.UpdateTx(ctx, tx, roomSyncFields(isBooked, user), roomModel.FilterByNumber(booking.RoomNumber)); err != nil {
			log.Error().Err(err).Msg("failed to sync room state")

			return res, fmt.Errorf("failed to sync room state: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Error().Err(err).Msg("failed to commit booking update")

		return res, fmt.Errorf("failed to commit booking update: %w", err)
	}

	if req.CustomerID != constant.Empty {
		booking.CustomerID = req.CustomerID
	}

	booking.DateModified = timezone.Now()
	booking.ModifiedBy = user

	s.invalidate(ctx, booking.ID)

	if eventType != constant.Empty {
		s.events.Publish(ctx, eventType, booking)
	}

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	booking, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return failure.NotFound("booking not found") // nolint:wrapcheck
	}

	unlock := s.locks.Lock(roomModel.LockKey(booking.RoomNumber))
	defer unlock()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { rollbackOnError(tx, err) }()

	booking, err = s.repo.GetForUpdateTx(ctx, tx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to lock booking")

		return fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return failure.NotFound("booking not found") // nolint:wrapcheck
	}

	room, err := s.roomRepo.GetForUpdateTx(ctx, tx, roomModel.FilterByNumber(booking.RoomNumber))
	if err != nil {
		log.Error().Err(err).Msg("failed to lock room")

		return fmt.Errorf("failed to lock room: %w", err)
	}

	if err = s.repo.DeleteTx(ctx, tx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete booking")

		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if room.ID != constant.Empty {
		var active int

		active, err = s.repo.CountTx(ctx, tx, model.FilterActiveByRoom(booking.RoomNumber))
		if err != nil {
			log.Error().Err(err).Msg("failed to count active bookings")

			return fmt.Errorf("failed to count active bookings: %w", err)
		}

		if err = s.roomRepo.UpdateTx(ctx, tx, roomSyncFields(active > 0, user), roomModel.FilterByNumber(booking.RoomNumber)); err != nil {
			log.Error().Err(err).Msg("failed to sync room state")

			return fmt.Errorf("failed to sync room state: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Error().Err(err).Msg("failed to commit booking deletion")

		return fmt.Errorf("failed to commit booking deletion: %w", err)
	}

	s.invalidate(ctx, booking.ID)
	s.events.Publish(ctx, event.TypeBookingDeleted, booking)

	return nil
}

// invalidate drops this booking's entry plus every listing cache, and the room
// caches whose is_booked view the transition may have changed.
func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
		shared.InvalidateCaches(c, s.cache, roomModel.EntityName)
	}()
}
