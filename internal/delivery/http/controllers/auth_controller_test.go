package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventlottery/internal/delivery/http/helpers"
	"eventlottery/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	signUpErr       error
	signUpResult    *domain.User
	lastSignUpEmail string
	lastSignUpRole  string

	loginErr       error
	loginToken     string
	loginUser      *domain.User
	lastLoginEmail string

	getByIDErr    error
	getByIDResult *domain.User

	updateErr  error
	lastUpdate *domain.User
}

func (f *fakeUserService) SignUp(_ context.Context, email, password, name, role string) (*domain.User, error) {
	f.lastSignUpEmail = email
	f.lastSignUpRole = role
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.signUpResult != nil {
		return f.signUpResult, nil
	}
	return &domain.User{ID: "user-created", Email: email, Name: name, Role: role}, nil
}

func (f *fakeUserService) Login(_ context.Context, email, _ string) (string, *domain.User, error) {
	f.lastLoginEmail = email
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.loginToken, f.loginUser, nil
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	if f.getByIDResult != nil {
		return f.getByIDResult, nil
	}
	return &domain.User{ID: id, Email: "u@example.com", Name: "U", Role: domain.RoleEntrant}, nil
}

func (f *fakeUserService) Update(_ context.Context, user *domain.User) error {
	f.lastUpdate = user
	return f.updateErr
}

func TestAuthController_SignUp(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
		wantRole       string
	}{
		{
			name:       "success normalizes email and role",
			body:       `{"email":"Ada@Example.COM","password":"longenough","name":"Ada","role":"ORGANIZER"}`,
			wantStatus: http.StatusCreated,
			wantRole:   domain.RoleOrganizer,
		},
		{
			name:           "missing email",
			body:           `{"password":"longenough","name":"Ada"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "email is required",
		},
		{
			name:           "short password",
			body:           `{"email":"a@b.co","password":"short","name":"Ada"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "at least 8 characters",
		},
		{
			name:           "bad role",
			body:           `{"email":"a@b.co","password":"longenough","name":"Ada","role":"superuser"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "role",
		},
		{
			name:           "duplicate email",
			body:           `{"email":"a@b.co","password":"longenough","name":"Ada"}`,
			fakeErr:        domain.ErrDuplicateEmail,
			wantStatus:     http.StatusConflict,
			wantBodySubstr: "already registered",
		},
		{
			name:           "unexpected service error",
			body:           `{"email":"a@b.co","password":"longenough","name":"Ada"}`,
			fakeErr:        errors.New("db down"),
			wantStatus:     http.StatusInternalServerError,
			wantBodySubstr: "db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserService{signUpErr: tt.fakeErr}
			ctrl := NewAuthController(testLogger, fake)

			req := httptest.NewRequest(http.MethodPost, "http://test/auth/signup", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			ctrl.SignUp(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusCreated {
				require.Nil(t, envelope.Error)
				assert.Equal(t, "ada@example.com", fake.lastSignUpEmail)
				assert.Equal(t, tt.wantRole, fake.lastSignUpRole)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fake       *fakeUserService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			body:       `{"email":"a@b.co","password":"longenough"}`,
			fake:       &fakeUserService{loginToken: "tok-1", loginUser: &domain.User{ID: "user-1"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid credentials",
			body:       `{"email":"a@b.co","password":"wrong-pass"}`,
			fake:       &fakeUserService{loginErr: errors.New("invalid credentials")},
			wantStatus: http.StatusUnauthorized,
			wantCode:   helpers.ErrCodeUnauthorized,
		},
		{
			name:       "missing password",
			body:       `{"email":"a@b.co"}`,
			fake:       &fakeUserService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAuthController(testLogger, tt.fake)

			req := httptest.NewRequest(http.MethodPost, "http://test/auth/login", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			ctrl.Login(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				dataMap, ok := envelope.Data.(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, "tok-1", dataMap["token"])
				assert.Equal(t, "Bearer", dataMap["token_type"])
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
		})
	}
}
