package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-registry-api/internal/application/ports"
	domain "user-registry-api/internal/domain/user"
	"user-registry-api/internal/interface/api/rest/dto/user"
	"user-registry-api/internal/interface/api/rest/validator"
)

const msgInvalidBody = "invalid request body"

type UserController struct {
	userService ports.UserService
	logger      *zap.Logger
}

func NewUserController(
	r gin.IRouter,
	userService ports.UserService,
	logger *zap.Logger,
) *UserController {
	uc := &UserController{
		userService: userService,
		logger:      logger,
	}

	r.GET(RouteUsers, uc.GetUsersHandler)
	r.GET(RouteEmailExists, uc.EmailExistsHandler)
	r.GET(RouteUser, uc.GetUserHandler)
	r.POST(RouteUsers, uc.CreateUserHandler)
	r.PUT(RouteUser, uc.UpdateUserHandler)
	r.DELETE(RouteUser, uc.DeleteUserHandler)

	return uc
}

func (uc *UserController) GetUsersHandler(c *gin.Context) {
	users, err := uc.userService.ListUsers(c.Request.Context())
	if err != nil {
		uc.internalError(c, "ListUsers", "failed to get users", err)
		return
	}

	c.JSON(http.StatusOK, user.ToViews(users))
}

func (uc *UserController) GetUserHandler(c *gin.Context) {
	id, ok := uc.userID(c)
	if !ok {
		return
	}

	u, err := uc.userService.FindUserByID(c.Request.Context(), id)
	if err != nil {
		uc.internalError(c, "FindUserByID", "failed to get a user", err)
		return
	}

	if u == nil {
		notFound(c, id)
		return
	}

	c.JSON(http.StatusOK, user.ToView(*u))
}

func (uc *UserController) CreateUserHandler(c *gin.Context) {
	var req user.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}
	req.Normalize()
	if errs := validator.ValidateCreate(req); len(errs) > 0 {
		badRequest(c, errs...)
		return
	}
	birthDate, err := validator.ParseDate(req.BirthDate)
	if err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	u, err := uc.userService.CreateUser(c.Request.Context(), user.ToRegistration(req, birthDate))
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			c.JSON(http.StatusConflict, user.Message{Message: err.Error()})
			return
		}
		uc.internalError(c, "CreateUser", "failed to create a user", err)
		return
	}

	c.Header("Location", RouteUsers+"/"+strconv.FormatInt(int64(u.ID), 10))
	c.JSON(http.StatusCreated, user.ToView(*u))
}

func (uc *UserController) UpdateUserHandler(c *gin.Context) {
	id, ok := uc.userID(c)
	if !ok {
		return
	}

	var req user.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}
	req.Normalize()
	if errs := validator.ValidateUpdate(req); len(errs) > 0 {
		badRequest(c, errs...)
		return
	}
	birthDate, err := validator.ParseDate(req.BirthDate)
	if err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	u, err := uc.userService.UpdateUser(c.Request.Context(), id, user.ToChanges(req, birthDate))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			notFound(c, id)
		case errors.Is(err, domain.ErrEmailAlreadyExists):
			c.JSON(http.StatusConflict, user.Message{Message: err.Error()})
		default:
			uc.internalError(c, "UpdateUser", "failed to update a user", err)
		}
		return
	}

	c.JSON(http.StatusOK, user.ToView(*u))
}

func (uc *UserController) DeleteUserHandler(c *gin.Context) {
	id, ok := uc.userID(c)
	if !ok {
		return
	}

	deleted, err := uc.userService.DeleteUser(c.Request.Context(), id)
	if err != nil {
		uc.internalError(c, "DeleteUser", "failed to delete user", err)
		return
	}
	if !deleted {
		notFound(c, id)
		return
	}

	c.Status(http.StatusNoContent)
}

func (uc *UserController) EmailExistsHandler(c *gin.Context) {
	email := domain.NormalizeEmail(c.Query("email"))
	if errs := validator.ValidateEmail(email); len(errs) > 0 {
		badRequest(c, errs...)
		return
	}

	exists, err := uc.userService.EmailExists(c.Request.Context(), email)
	if err != nil {
		uc.internalError(c, "EmailExists", "failed to check email", err)
		return
	}

	c.JSON(http.StatusOK, user.EmailExists{Email: email, Exists: exists})
}

func (uc *UserController) userID(c *gin.Context) (domain.ID, bool) {
	id, err := validator.ParseID(c.Param("user_id"))
	if err != nil {
		badRequest(c, err.Error())
		return 0, false
	}
	return id, true
}

// internalError logs the cause and answers with an opaque message.
func (uc *UserController) internalError(c *gin.Context, op, msg string, err error) {
	c.JSON(http.StatusInternalServerError, user.Message{Message: msg})
	uc.logger.Error(op+"() error", zap.Error(err))
}

func badRequest(c *gin.Context, errs ...string) {
	c.JSON(http.StatusBadRequest, user.ValidationErrors{Errors: errs})
}

func notFound(c *gin.Context, id domain.ID) {
	c.JSON(http.StatusNotFound, user.Message{Message: fmt.Sprintf("user with id %d not found", id)})
}
