package rest

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"user-registry-api/internal/application/services"
	memory "user-registry-api/internal/infrastructure/db/memory/user"
	"user-registry-api/internal/infrastructure/hasher"
	"user-registry-api/internal/infrastructure/metrics"
	"user-registry-api/internal/infrastructure/mq"
	"user-registry-api/internal/interface/api/rest/dto/user"
)

// newFlowRouter wires the real service over the in-memory store.
func newFlowRouter(t *testing.T) (*gin.Engine, *memory.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewRepository()
	svc := services.NewUserService(
		repo,
		hasher.NewBcrypt(bcrypt.MinCost),
		mq.Nop{},
		metrics.NewCounter(prometheus.NewRegistry()),
		zap.NewNop(),
	)

	r := gin.New()
	NewUserController(r, svc, zap.NewNop())
	return r, repo
}

func TestUserFlow_CreateStoresLowercaseEmail(t *testing.T) {
	r, repo := newFlowRouter(t)

	req := validCreateRequest()
	req.Email = "Ana@Mail.com"
	rr := doReq(t, r, http.MethodPost, RouteUsers, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	v := decode[user.View](t, rr)
	assert.Equal(t, "ana@mail.com", v.Email)
	assert.True(t, v.Active)
	assert.Equal(t, userPath(v.ID), rr.Header().Get("Location"))
	assert.Equal(t, v.ID, idOf(t, rr.Header().Get("Location")))
	assert.NotContains(t, rr.Body.String(), "assword")
	assert.NotContains(t, rr.Body.String(), "updatedAt")

	stored, err := repo.FetchUserByID(t.Context(), 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "ana@mail.com", stored.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Secret1")))

	rr = doReq(t, r, http.MethodGet, RouteEmailExists+"?email=ANA@mail.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[user.EmailExists](t, rr).Exists)
}

func TestUserFlow_RejectsInvalidInput(t *testing.T) {
	r, repo := newFlowRouter(t)

	weak := validCreateRequest()
	weak.Password = "abc123"
	rr := doReq(t, r, http.MethodPost, RouteUsers, weak)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"password must contain at least one uppercase letter"},
		decode[user.ValidationErrors](t, rr).Errors)

	young := validCreateRequest()
	young.BirthDate = time.Now().AddDate(-17, 0, 0).Format(time.DateOnly)
	rr = doReq(t, r, http.MethodPost, RouteUsers, young)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"user must be at least 18 years old"},
		decode[user.ValidationErrors](t, rr).Errors)

	users, err := repo.FetchUsers(t.Context())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserFlow_DuplicateEmailDiffersOnlyInCase(t *testing.T) {
	r, _ := newFlowRouter(t)

	first := validCreateRequest()
	first.Email = "ana@mail.com"
	require.Equal(t, http.StatusCreated, doReq(t, r, http.MethodPost, RouteUsers, first).Code)

	second := validCreateRequest()
	second.Name = "Ana Maria"
	second.Email = "ANA@MAIL.COM"
	rr := doReq(t, r, http.MethodPost, RouteUsers, second)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "email is already registered: ana@mail.com", decode[user.Message](t, rr).Message)

	rr = doReq(t, r, http.MethodGet, RouteUsers, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[user.Views](t, rr), 1)
}

func TestUserFlow_UpdateAndSoftDelete(t *testing.T) {
	r, repo := newFlowRouter(t)

	other := validCreateRequest()
	other.Email = "bob@mail.com"
	other.Name = "Bob Lima"
	require.Equal(t, http.StatusCreated, doReq(t, r, http.MethodPost, RouteUsers, other).Code)

	rr := doReq(t, r, http.MethodPost, RouteUsers, validCreateRequest())
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[user.View](t, rr)

	// same address in another case is not a conflict with itself
	upd := validUpdateRequest()
	upd.Name = "Ana Lima"
	upd.Email = "ANA@mail.com"
	upd.Phone = ptr("(11) 91234-5678")
	rr = doReq(t, r, http.MethodPut, userPath(created.ID), upd)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[user.View](t, rr)
	assert.Equal(t, "Ana Lima", updated.Name)
	assert.True(t, updated.Active, "missing active keeps the stored value")
	require.NotNil(t, updated.Phone)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	upd.Email = "bob@mail.com"
	rr = doReq(t, r, http.MethodPut, userPath(created.ID), upd)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doReq(t, r, http.MethodPut, userPath(999), validUpdateRequest())
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doReq(t, r, http.MethodDelete, userPath(created.ID), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doReq(t, r, http.MethodGet, userPath(created.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[user.View](t, rr).Active)

	stored, err := repo.FetchUserByID(t.Context(), 2)
	require.NoError(t, err)
	require.NotNil(t, stored.UpdatedAt)
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))

	// a soft-deleted address stays taken
	again := validCreateRequest()
	rr = doReq(t, r, http.MethodPost, RouteUsers, again)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doReq(t, r, http.MethodDelete, userPath(999), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
