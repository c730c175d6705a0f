package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hotelier/config"
	"hotelier/infras/jwt"
	"hotelier/infras/otel/mocks"
	"hotelier/internal/domains/auth/model/dto"
	"hotelier/internal/domains/auth/service"
	userMocks "hotelier/internal/domains/user/mocks"
	userModel "hotelier/internal/domains/user/model"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/password"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "test-access-secret"
	cfg.JWT.RefreshSecret = "test-refresh-secret"
	cfg.JWT.AccessExpireMin = 15
	cfg.JWT.RefreshExpireMin = 60

	return cfg
}

func storedUser(t *testing.T, plaintext string, isAdmin bool) userModel.User {
	t.Helper()

	hashed, err := password.Hash(plaintext)
	require.NoError(t, err)

	return userModel.User{
		ID:       "user-1",
		Username: "frontdesk",
		Password: hashed,
		IsAdmin:  isAdmin,
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	cfg := testConfig()
	user := storedUser(t, "correct horse", true)

	tests := []struct {
		name      string
		username  string
		plaintext string
		setupMock func(repo *userMocks.MockUser)
		wantErr   bool
		wantRole  string
	}{
		{
			name:      "valid credentials",
			username:  "frontdesk",
			plaintext: "correct horse",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(user, nil)
			},
			wantRole: constant.RoleAdmin,
		},
		{
			name:      "wrong password",
			username:  "frontdesk",
			plaintext: "battery staple",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(user, nil)
			},
			wantErr: true,
		},
		{
			name:      "unknown username",
			username:  "nobody",
			plaintext: "correct horse",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{}, nil)
			},
			wantErr: true,
		},
		{
			name:      "repository error",
			username:  "frontdesk",
			plaintext: "correct horse",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{}, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := userMocks.NewMockUser(ctrl)
			tt.setupMock(mockRepo)

			svc := service.New(mockRepo, cfg, mocks.NewOtel(), jwt.New(cfg))

			identity, err := svc.Authenticate(context.Background(), tt.username, tt.plaintext)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, user.ID, identity.UserID)
			assert.Equal(t, user.Username, identity.Username)
			assert.Equal(t, tt.wantRole, identity.Role)
		})
	}
}

// Unknown usernames and wrong passwords must be indistinguishable to the
// caller, otherwise the login endpoint doubles as a username oracle.
func TestAuthService_AuthenticateUniformFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig()
	user := storedUser(t, "correct horse", false)

	mockRepo := userMocks.NewMockUser(ctrl)
	mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{}, nil)
	mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(user, nil)

	svc := service.New(mockRepo, cfg, mocks.NewOtel(), jwt.New(cfg))

	_, unknownErr := svc.Authenticate(context.Background(), "nobody", "correct horse")
	_, wrongErr := svc.Authenticate(context.Background(), "frontdesk", "battery staple")

	assert.Equal(t, failure.NameUnauthorized, failure.GetName(unknownErr))
	assert.Equal(t, failure.NameUnauthorized, failure.GetName(wrongErr))
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig()
	user := storedUser(t, "correct horse", false)

	mockRepo := userMocks.NewMockUser(ctrl)
	mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(user, nil)

	jwtService := jwt.New(cfg)
	svc := service.New(mockRepo, cfg, mocks.NewOtel(), jwtService)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Username: "frontdesk", Password: "correct horse"})

	require.NoError(t, err)
	assert.Equal(t, user.Username, res.Profile.Username)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := jwtService.ValidateToken(res.AccessToken, jwt.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, constant.RoleUser, claims.Role)
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig()
	jwtService := jwt.New(cfg)

	mockRepo := userMocks.NewMockUser(ctrl)
	svc := service.New(mockRepo, cfg, mocks.NewOtel(), jwtService)

	pair, err := jwtService.GenerateTokenPair("user-1", "frontdesk", constant.RoleUser)
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		res, err := svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{RefreshToken: pair.RefreshToken})

		assert.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)
		assert.NotEmpty(t, res.RefreshToken)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		_, err := svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{RefreshToken: "not-a-token"})

		assert.Error(t, err)
		assert.Equal(t, failure.NameUnauthorized, failure.GetName(err))
	})

	t.Run("access token is rejected as refresh token", func(t *testing.T) {
		_, err := svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{RefreshToken: pair.AccessToken})

		assert.Error(t, err)
		assert.Equal(t, failure.NameUnauthorized, failure.GetName(err))
	})
}
