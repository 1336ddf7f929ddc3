package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventlottery/internal/delivery/http/helpers"
	"eventlottery/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserController_GetMe(t *testing.T) {
	tests := []struct {
		name       string
		authed     bool
		getByIDErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "returns the authenticated user",
			authed:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unauthenticated",
			authed:     false,
			wantStatus: http.StatusUnauthorized,
			wantCode:   helpers.ErrCodeUnauthorized,
		},
		{
			name:       "user not found",
			authed:     true,
			getByIDErr: domain.ErrUserNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   helpers.ErrCodeNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeUserService{
				getByIDErr:    tc.getByIDErr,
				getByIDResult: &domain.User{ID: testUserID, Email: "ada@example.com", Name: "Ada"},
			}
			ctrl := NewUserController(testLogger, svc)

			var req *http.Request
			if tc.authed {
				req = authedRequest(http.MethodGet, "/users/me", "")
			} else {
				req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
			}
			rec := httptest.NewRecorder()
			ctrl.GetMe(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
			if tc.wantCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tc.wantCode, envelope.Error.Code)
				return
			}
			data, ok := envelope.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "ada@example.com", data["email"])
		})
	}
}

func TestUserController_UpdateMe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		getByIDErr error
		wantStatus int
		wantName   string
	}{
		{
			name:       "updates the name",
			body:       `{"name": "  Grace  "}`,
			wantStatus: http.StatusOK,
			wantName:   "Grace",
		},
		{
			name:       "blank name rejected",
			body:       `{"name": "   "}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field rejected",
			body:       `{"email": "new@example.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "user not found",
			body:       `{"name": "Grace"}`,
			getByIDErr: domain.ErrUserNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeUserService{
				getByIDErr:    tc.getByIDErr,
				getByIDResult: &domain.User{ID: testUserID, Email: "ada@example.com", Name: "Ada"},
			}
			ctrl := NewUserController(testLogger, svc)

			req := authedRequest(http.MethodPatch, "/users/me", tc.body)
			rec := httptest.NewRecorder()
			ctrl.UpdateMe(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus != http.StatusOK {
				assert.Nil(t, svc.lastUpdate)
				return
			}
			require.NotNil(t, svc.lastUpdate)
			assert.Equal(t, tc.wantName, svc.lastUpdate.Name)
		})
	}
}
