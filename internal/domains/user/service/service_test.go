package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hotelier/config"
	"hotelier/infras/otel/mocks"
	userMocks "hotelier/internal/domains/user/mocks"
	"hotelier/internal/domains/user/model"
	"hotelier/internal/domains/user/model/dto"
	"hotelier/internal/domains/user/service"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/password"
)

type noopCache struct{}

func (noopCache) Save(context.Context, string, any, int) error { return nil }
func (noopCache) Get(context.Context, string, any) error       { return cache.CacheNil }
func (noopCache) Delete(context.Context, string) error         { return nil }
func (noopCache) Clear(context.Context, string) error          { return nil }

func boolPtr(v bool) *bool { return &v }

func newUserService(repo *userMocks.MockUser) service.User {
	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	return service.New(repo, cfg, noopCache{}, mocks.NewOtel())
}

func TestUserService_Create(t *testing.T) {
	req := dto.CreateUserRequest{
		Username:  "frontdesk",
		Password:  "correct horse",
		FirstName: "Front",
		LastName:  "Desk",
	}

	uniqueViolation := &pq.Error{Code: pq.ErrorCode(constant.PqErrorCodeUniqueViolation)}

	t.Run("registration hashes the password and self-attributes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, user model.User) error {
				assert.NotEqual(t, req.Password, user.Password)
				assert.NoError(t, password.Verify(req.Password, user.Password))
				assert.Equal(t, req.Username, user.CreatedBy)

				return nil
			})

		svc := newUserService(mockRepo)

		// No user id in context: this is the unauthenticated registration path.
		res, err := svc.Create(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, req.Username, res.Username)
		assert.False(t, res.IsAdmin)
	})

	t.Run("authenticated creation attributes to the caller", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, user model.User) error {
				assert.Equal(t, "admin-id", user.CreatedBy)

				return nil
			})

		svc := newUserService(mockRepo)

		ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-id")
		_, err := svc.Create(ctx, req)

		assert.NoError(t, err)
	})

	t.Run("anonymous registration cannot grant the admin role", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)

		svc := newUserService(mockRepo)

		adminReq := req
		adminReq.IsAdmin = boolPtr(true)

		_, err := svc.Create(context.Background(), adminReq)

		require.Error(t, err)
		assert.Equal(t, failure.NameValidationFailed, failure.GetName(err))
		assert.Contains(t, failure.GetFields(err), model.FieldIsAdmin)
	})

	t.Run("an administrator may create another admin", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, user model.User) error {
				assert.True(t, user.IsAdmin)

				return nil
			})

		svc := newUserService(mockRepo)

		ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-id")
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleAdmin)

		adminReq := req
		adminReq.IsAdmin = boolPtr(true)

		res, err := svc.Create(ctx, adminReq)

		require.NoError(t, err)
		assert.True(t, res.IsAdmin)
	})

	t.Run("taken username is a field-level validation failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)

		svc := newUserService(mockRepo)

		_, err := svc.Create(context.Background(), req)

		require.Error(t, err)
		assert.Equal(t, failure.NameValidationFailed, failure.GetName(err))
		assert.Contains(t, failure.GetFields(err), model.FieldUsername)
	})

	t.Run("unique index violation on insert is a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(uniqueViolation)

		svc := newUserService(mockRepo)

		_, err := svc.Create(context.Background(), req)

		assert.Error(t, err)
		assert.Equal(t, failure.NameConflict, failure.GetName(err))
	})
}

// TestUserService_ConcurrentRegistration races several registrations of the
// same username. The Exist precheck passes for everyone; the unique index
// decides, and every loser must surface as a conflict.
func TestUserService_ConcurrentRegistration(t *testing.T) {
	const workers = 6

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uniqueViolation := &pq.Error{Code: pq.ErrorCode(constant.PqErrorCodeUniqueViolation)}

	var (
		mu    sync.Mutex
		taken bool
	)

	mockRepo := userMocks.NewMockUser(ctrl)
	mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil).Times(workers)
	mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ model.User) error {
			mu.Lock()
			defer mu.Unlock()

			if taken {
				return uniqueViolation
			}

			taken = true

			return nil
		}).Times(workers)

	svc := newUserService(mockRepo)

	req := dto.CreateUserRequest{Username: "frontdesk", Password: "correct horse"}

	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Create(context.Background(), req)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	succeeded, conflicts := 0, 0

	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case failure.Is(err, failure.NameConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestUserService_Update(t *testing.T) {
	stored := model.User{ID: "user-1", Username: "frontdesk", FirstName: "Front"}

	t.Run("password change is stored hashed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) error {
				hashed, ok := fields[model.FieldPassword].(string)
				require.True(t, ok)
				assert.NoError(t, password.Verify("new secret", hashed))

				return nil
			})

		svc := newUserService(mockRepo)

		ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "user-1")
		_, err := svc.Update(ctx, dto.UpdateUserRequest{Password: "new secret"}, "user-1")

		assert.NoError(t, err)
	})

	t.Run("profile edit leaves the password column alone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
		mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) error {
				assert.NotContains(t, fields, model.FieldPassword)
				assert.Equal(t, "Updated", fields[model.FieldFirstName])

				return nil
			})

		svc := newUserService(mockRepo)

		ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "user-1")
		res, err := svc.Update(ctx, dto.UpdateUserRequest{FirstName: "Updated"}, "user-1")

		assert.NoError(t, err)
		assert.Equal(t, "Updated", res.FirstName)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.User{}, nil)

		svc := newUserService(mockRepo)

		_, err := svc.Update(context.Background(), dto.UpdateUserRequest{FirstName: "Updated"}, "no-such-user")

		assert.Error(t, err)
		assert.Equal(t, failure.NameNotFound, failure.GetName(err))
	})
}

func TestUserService_Delete(t *testing.T) {
	t.Run("existing user is deleted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		mockRepo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		svc := newUserService(mockRepo)

		assert.NoError(t, svc.Delete(context.Background(), "user-1"))
	})

	t.Run("missing user is not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := userMocks.NewMockUser(ctrl)
		mockRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)

		svc := newUserService(mockRepo)

		err := svc.Delete(context.Background(), "no-such-user")

		assert.Error(t, err)
		assert.Equal(t, failure.NameNotFound, failure.GetName(err))
	})
}
