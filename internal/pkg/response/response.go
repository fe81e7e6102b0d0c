package response

import "github.com/gofiber/fiber/v2"

// Response represents a standard API response
type Response struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message,omitempty"`
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	Notifications interface{} `json:"notifications,omitempty"`
}

// notificationsKey is the fiber.Ctx local holding toasts to attach to the response
const notificationsKey = "notifications"

// AttachNotifications makes the response written for this request carry
// whatever drain returns at write time
func AttachNotifications(c *fiber.Ctx, drain func() interface{}) {
	c.Locals(notificationsKey, drain)
}

func notifications(c *fiber.Ctx) interface{} {
	if drain, ok := c.Locals(notificationsKey).(func() interface{}); ok {
		return drain()
	}
	return nil
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success:       true,
		Message:       message,
		Data:          data,
		Notifications: notifications(c),
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success:       true,
		Message:       message,
		Data:          data,
		Notifications: notifications(c),
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success:       false,
		Error:         message,
		Notifications: notifications(c),
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusTooManyRequests, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}
