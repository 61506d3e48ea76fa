package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
	"github.com/dmitrijs2005/voucher-auth/internal/server/validation"
)

const (
	activityLogin             = "Authentication-Login"
	activityUpdateUser        = "Authentication-UpdateUser"
	activityCheckActive       = "Authentication-CheckActiveUser"
	activityUpdatePreferences = "Authentication-UpdatePreferences"
	activityDeletePreferences = "Authentication-DeletePreferences"

	msgHardenedLogin = "Invalid credentials."

	healthTimeout = 2 * time.Second
)

// UserService is the account lifecycle the facade exposes.
type UserService interface {
	CreateUser(ctx context.Context, req models.UserRequest) (*models.UserDTO, error)
	LoginUser(ctx context.Context, email, password string) (*models.UserDTO, error)
	VerifyUser(ctx context.Context, encoded string) (*models.UserDTO, error)
	Update(ctx context.Context, req models.UserRequest) (*models.UserDTO, error)
	ResetPassword(ctx context.Context, userID, password string) (*models.UserDTO, error)
	CheckSpecificActiveUser(ctx context.Context, userID string) (*models.UserDTO, error)
	FindActiveUsers(ctx context.Context, page models.PageRequest) (int64, []models.UserDTO, error)
	FindUsersByPreferences(ctx context.Context, tag string, page models.PageRequest) (int64, []models.UserDTO, error)
	UpdatePreferencesByUser(ctx context.Context, userID string, tags []string) (*models.UserDTO, error)
	DeletePreferencesByUser(ctx context.Context, userID string, tags []string) (*models.UserDTO, error)
}

type AuditEmitter interface {
	Emit(r models.AuditRecord) bool
}

// Pinger reports whether the backing store answers. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Paging PageOptions
	// HardenedLoginErrors reports every failed login as invalid credentials
	// instead of telling missing, deleted and unverified accounts apart.
	HardenedLoginErrors bool
}

type Handler struct {
	users     UserService
	validator validation.Strategy[models.UserRequest]
	audit     AuditEmitter
	db        Pinger
	logger    logging.Logger
	opts      Options
}

func NewHandler(us UserService, v validation.Strategy[models.UserRequest], a AuditEmitter, db Pinger,
	l logging.Logger, opts Options) *Handler {
	return &Handler{
		users:     us,
		validator: v,
		audit:     a,
		db:        db,
		logger:    l.With("module", "http"),
		opts:      opts,
	}
}

type auditUser struct {
	id   string
	name string
}

// attribute names the user an audited request is about.
func attribute(c *fiber.Ctx, id, name string) {
	c.Locals(localsAuditUser, auditUser{id: id, name: name})
}

func attributeDTO(c *fiber.Ctx, dto *models.UserDTO) {
	attribute(c, dto.UserID, dto.Username)
}

// audited emits one AuditRecord once next has written the response.
func (h *Handler) audited(activity, description string, next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := next(c)

		user, ok := c.Locals(localsAuditUser).(auditUser)
		if !ok {
			user = auditUser{id: common.InvalidUserID, name: common.InvalidUserName}
		}
		message, _ := c.Locals(localsMessage).(string)
		status := c.Response().StatusCode()

		result := models.ResponseSuccess
		if status >= fiber.StatusBadRequest {
			result = models.ResponseFailed
		}

		h.audit.Emit(models.AuditRecord{
			StatusCode:            strconv.Itoa(status),
			UserID:                user.id,
			Username:              user.name,
			ActivityType:          activity,
			ActivityDescription:   description,
			RequestActionEndpoint: c.Path(),
			ResponseStatus:        result,
			RequestType:           c.Method(),
			Remarks:               message,
		})
		return err
	}
}

func (h *Handler) listActive(c *fiber.Ctx) error {
	page, msg := h.opts.Paging.pageRequest(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	total, users, err := h.users.FindActiveUsers(c.UserContext(), page)
	if err != nil {
		return fail(c, err)
	}
	if len(users) == 0 {
		return respond(c, fiber.StatusNotFound, msgNoUsers, nil, nil)
	}
	return okList(c, "Successfully get all active users.", users, total)
}

func (h *Handler) listByPreference(c *fiber.Ctx) error {
	page, msg := h.opts.Paging.pageRequest(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	tag := c.Params("tag")
	total, users, err := h.users.FindUsersByPreferences(c.UserContext(), tag, page)
	if err != nil {
		return fail(c, err)
	}
	if len(users) == 0 {
		return respond(c, fiber.StatusNotFound, msgNoUsers, nil, nil)
	}
	return okList(c, "Successfully get all active users with preference "+tag+".", users, total)
}

func (h *Handler) create(c *fiber.Ctx) error {
	var req models.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgInvalidBody)
	}
	if err := validateCreateRequest(req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.UserContext()
	if res := h.validator.ValidateCreation(ctx, req); !res.Valid {
		return fail(c, resultError(res))
	}

	dto, err := h.users.CreateUser(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, dto.Email+" is created successfully", dto)
}

func (h *Handler) login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgInvalidBody)
	}
	if err := validateLoginRequest(req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.UserContext()
	res := h.validator.ValidateEmail(ctx, req.Email)
	attribute(c, res.UserID, res.UserName)
	if !res.Valid {
		err := resultError(res)
		if h.opts.HardenedLoginErrors && errors.Is(err, common.ErrorUnauthorized) {
			err = common.NewError(common.ErrInvalidCredentials, msgHardenedLogin)
		}
		return fail(c, err)
	}

	dto, err := h.users.LoginUser(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, dto.Email+" login successfully", dto)
}

func (h *Handler) verify(c *fiber.Ctx) error {
	dto, err := h.users.VerifyUser(c.UserContext(), c.Params("code"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "User successfully verified.", dto)
}

func (h *Handler) resetPassword(c *fiber.Ctx) error {
	var req models.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgInvalidBody)
	}
	if err := validateResetRequest(req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.UserContext()
	id := c.Params("id")
	if res := h.validator.ValidateUserID(ctx, id); !res.Valid {
		return fail(c, resultError(res))
	}

	dto, err := h.users.ResetPassword(ctx, id, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Password reset successfully.", dto)
}

func (h *Handler) update(c *fiber.Ctx) error {
	var req models.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgInvalidBody)
	}
	req.UserID = c.Params("id")
	if err := validateUpdateRequest(req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.UserContext()
	res := h.validator.ValidateUpdating(ctx, req.UserID)
	attribute(c, res.UserID, res.UserName)
	if !res.Valid {
		return fail(c, resultError(res))
	}

	dto, err := h.users.Update(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	attributeDTO(c, dto)
	return ok(c, "User updated successfully.", dto)
}

// validateSubject attributes the request to the user named by the :id
// param and reports whether that account is active and verified.
func (h *Handler) validateSubject(c *fiber.Ctx) (models.ValidationResult, bool) {
	res := h.validator.ValidateUserID(c.UserContext(), c.Params("id"))
	attribute(c, res.UserID, res.UserName)
	return res, res.Valid
}

func (h *Handler) checkActive(c *fiber.Ctx) error {
	if res, valid := h.validateSubject(c); !valid {
		return fail(c, resultError(res))
	}

	dto, err := h.users.CheckSpecificActiveUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	attributeDTO(c, dto)
	return ok(c, dto.Email+" is active.", dto)
}

func (h *Handler) addPreferences(c *fiber.Ctx) error {
	tags, err := parsePreferences(c.Body())
	if err != nil {
		return badRequest(c, msgInvalidBody)
	}
	if res, valid := h.validateSubject(c); !valid {
		return fail(c, resultError(res))
	}

	dto, err := h.users.UpdatePreferencesByUser(c.UserContext(), c.Params("id"), tags)
	if err != nil {
		return fail(c, err)
	}
	attributeDTO(c, dto)
	return ok(c, "Preferences updated successfully.", dto)
}

func (h *Handler) deletePreferences(c *fiber.Ctx) error {
	tags, err := parsePreferences(c.Body())
	if err != nil {
		return badRequest(c, msgInvalidBody)
	}
	if res, valid := h.validateSubject(c); !valid {
		return fail(c, resultError(res))
	}

	dto, err := h.users.DeletePreferencesByUser(c.UserContext(), c.Params("id"), tags)
	if err != nil {
		return fail(c, err)
	}
	attributeDTO(c, dto)
	return ok(c, "Preferences deleted successfully.", dto)
}

func (h *Handler) healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "health check failed", "error", err)
		return respond(c, fiber.StatusServiceUnavailable, "Database unavailable.", nil, nil)
	}
	return ok(c, "ok", nil)
}
