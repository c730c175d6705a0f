package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotelier/config"
	"hotelier/infras/otel"
	bookingModel "hotelier/internal/domains/booking/model"
	bookingRepo "hotelier/internal/domains/booking/repository"
	bookingSvc "hotelier/internal/domains/booking/service"
	"hotelier/internal/domains/customer/model"
	"hotelier/internal/domains/customer/model/dto"
	"hotelier/internal/domains/customer/repository"
	"hotelier/shared"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
	"hotelier/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetCustomer    = "customer:get"
	cacheGetAllCustomer = "customer:gets"
	cacheCountCustomer  = "customer:count"
)

type Customer interface {
	Create(ctx context.Context, req dto.CreateCustomerRequest) (dto.CustomerResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetCustomersResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.CustomerResponse, error)
	Update(ctx context.Context, req dto.UpdateCustomerRequest, id string) (dto.CustomerResponse, error)
	Delete(ctx context.Context, id string, cascade bool) error
}

type serviceImpl struct {
	repo        repository.Customer
	bookingRepo bookingRepo.Booking
	bookingSvc  bookingSvc.Booking
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Customer,
	bookingRepo bookingRepo.Booking,
	bookingSvc bookingSvc.Booking,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Customer {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		bookingSvc:  bookingSvc,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

// duplicateName is the precheck failure for a taken (first_name, last_name)
// pair: a field-level validation error on both halves of the pair. The
// write-time unique-index race stays a Conflict.
func duplicateName() error {
	const msg = "customer with the same name already exists"

	return failure.ValidationFailed(map[string][]string{
		model.FieldFirstName: {msg},
		model.FieldLastName:  {msg},
	})
}

func rollbackOnError(tx *sqlx.Tx, err error) {
	if err == nil {
		return
	}

	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		log.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateCustomerRequest) (res dto.CustomerResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	exists, err := s.repo.Exist(ctx, model.FilterByName(req.FirstName, req.LastName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if customer exists")

		return res, fmt.Errorf("failed to check if customer exists: %w", err)
	}

	if exists {
		return res, duplicateName() // nolint:wrapcheck
	}

	customer := req.ToModel(user)

	if err = s.repo.Insert(ctx, customer); err != nil {
		if shared.IsUniqueViolation(err) {
			return res, failure.Conflict("customer with the same name already exists") // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to create customer")

		return res, fmt.Errorf("failed to create customer: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllCustomer)
		shared.InvalidateCaches(c, s.cache, cacheCountCustomer)
	}()

	res.FromModel(customer)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetCustomersResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllCustomer, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for customers")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count customers")

		return res, fmt.Errorf("failed to count customers: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get customers")

		return res, fmt.Errorf("failed to get customers: %w", err)
	}

	res.FromModels(models, total)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save customers to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountCustomer, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for customer count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count customers")

		return res, fmt.Errorf("failed to count customers: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save customer count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.CustomerResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetCustomer, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for customer")

		return res, nil
	}

	customer, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get customer")

		return res, fmt.Errorf("failed to get customer: %w", err)
	}

	if customer.ID == constant.Empty {
		return res, failure.NotFound("customer not found") // nolint:wrapcheck
	}

	res.FromModel(customer)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save customer to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateCustomerRequest, id string) (res dto.CustomerResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	customer, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get customer")

		return res, fmt.Errorf("failed to get customer: %w", err)
	}

	if customer.ID == constant.Empty {
		return res, failure.NotFound("customer not found") // nolint:wrapcheck
	}

	firstName := customer.FirstName
	if req.FirstName != constant.Empty {
		firstName = req.FirstName
	}

	lastName := customer.LastName
	if req.LastName != constant.Empty {
		lastName = req.LastName
	}

	if firstName != customer.FirstName || lastName != customer.LastName {
		exists, existErr := s.repo.Exist(ctx, model.FilterByName(firstName, lastName))
		if existErr != nil {
			log.Error().Err(existErr).Msg("failed to check if customer exists")

			return res, fmt.Errorf("failed to check if customer exists: %w", existErr)
		}

		if exists {
			return res, duplicateName() // nolint:wrapcheck
		}
	}

	updatedFields := shared.TransformFields(req, user)
	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		if shared.IsUniqueViolation(err) {
			return res, failure.Conflict("customer with the same name already exists") // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to update customer")

		return res, fmt.Errorf("failed to update customer: %w", err)
	}

	customer.FirstName = firstName
	customer.LastName = lastName

	if req.Address != constant.Empty {
		customer.Address = req.Address
	}

	if req.PhoneNumber != constant.Empty {
		customer.PhoneNumber = req.PhoneNumber
	}

	customer.DateModified = timezone.Now()
	customer.ModifiedBy = user

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetCustomer, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete customer from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllCustomer)
		shared.InvalidateCaches(c, s.cache, cacheCountCustomer)
	}()

	res.FromModel(customer)

	return res, nil
}

// Delete removes a customer. Bookings block the delete unless cascade is
// set; cascaded bookings route through the booking coordinator so each
// room's is_booked flag is recomputed under its lock.
func (s *serviceImpl) Delete(ctx context.Context, id string, cascade bool) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	customer, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get customer")

		return fmt.Errorf("failed to get customer: %w", err)
	}

	if customer.ID == constant.Empty {
		return failure.NotFound("customer not found") // nolint:wrapcheck
	}

	bookings, err := s.bookingRepo.GetAll(ctx, gDto.QueryParams{}, bookingModel.FilterByCustomer(id))
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return fmt.Errorf("failed to get bookings: %w", err)
	}

	if len(bookings) > 0 && !cascade {
		return failure.Conflict("customer still has bookings") // nolint:wrapcheck
	}

	for _, booking := range bookings {
		if err = s.bookingSvc.Delete(ctx, booking.ID); err != nil && !failure.Is(err, failure.NameNotFound) {
			return fmt.Errorf("failed to cascade booking deletion: %w", err)
		}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { rollbackOnError(tx, err) }()

	customer, err = s.repo.GetForUpdateTx(ctx, tx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to lock customer")

		return fmt.Errorf("failed to lock customer: %w", err)
	}

	if customer.ID == constant.Empty {
		return failure.NotFound("customer not found") // nolint:wrapcheck
	}

	// A booking created between the cascade above and this point would be
	// orphaned by the delete, so it turns the whole operation into a Conflict.
	remaining, err := s.bookingRepo.CountTx(ctx, tx, bookingModel.FilterByCustomer(id))
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return fmt.Errorf("failed to count bookings: %w", err)
	}

	if remaining > 0 {
		err = failure.Conflict("customer still has bookings")

		return err // nolint:wrapcheck
	}

	if err = s.repo.DeleteTx(ctx, tx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete customer")

		return fmt.Errorf("failed to delete customer: %w", err)
	}

	if err = tx.Commit(); err != nil {
		log.Error().Err(err).Msg("failed to commit customer deletion")

		return fmt.Errorf("failed to commit customer deletion: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetCustomer, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete customer from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllCustomer)
		shared.InvalidateCaches(c, s.cache, cacheCountCustomer)
	}()

	return nil
}
