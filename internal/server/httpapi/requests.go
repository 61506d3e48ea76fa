package httpapi

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

func validateCreateRequest(req models.UserRequest) error {
	return ozzo.ValidateStruct(&req,
		ozzo.Field(&req.Email, ozzo.Required, ozzo.Length(3, 254), ozzo.Match(emailPattern)),
		ozzo.Field(&req.Username, ozzo.Required, ozzo.Length(1, 100)),
		ozzo.Field(&req.Password, ozzo.Required, ozzo.Length(1, 72)),
		ozzo.Field(&req.Role, ozzo.Required, ozzo.In(models.Roles...)),
	)
}

func validateUpdateRequest(req models.UserRequest) error {
	return ozzo.ValidateStruct(&req,
		ozzo.Field(&req.Username, ozzo.Length(1, 100)),
		ozzo.Field(&req.Password, ozzo.Length(1, 72)),
		ozzo.Field(&req.Role, ozzo.In(models.Roles...)),
	)
}

func validateLoginRequest(req models.LoginRequest) error {
	return ozzo.ValidateStruct(&req,
		ozzo.Field(&req.Email, ozzo.Required),
		ozzo.Field(&req.Password, ozzo.Required),
	)
}

func validateResetRequest(req models.ResetPasswordRequest) error {
	return ozzo.ValidateStruct(&req,
		ozzo.Field(&req.Password, ozzo.Required, ozzo.Length(1, 72)),
	)
}

// parsePreferences accepts {"preferences": [...]} or a bare JSON array.
func parsePreferences(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var tags []string
		if err := json.Unmarshal(body, &tags); err != nil {
			return nil, err
		}
		return tags, nil
	}

	var req models.PreferencesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return req.Preferences, nil
}

// PageOptions bound the page size of list endpoints.
type PageOptions struct {
	DefaultSize int
	MaxSize     int
}

// pageRequest reads ?page and ?size. Page defaults to 0 and size to
// DefaultSize; sizes above MaxSize are clamped.
func (o PageOptions) pageRequest(c *fiber.Ctx) (models.PageRequest, string) {
	p := models.PageRequest{Page: 0, Size: o.DefaultSize}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, "Page must be a non-negative integer."
		}
		p.Page = n
	}

	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, "Size must be a positive integer."
		}
		p.Size = n
	}

	if o.MaxSize > 0 && p.Size > o.MaxSize {
		p.Size = o.MaxSize
	}
	if !p.InRange() {
		return p, "Page is out of range."
	}
	return p, ""
}
