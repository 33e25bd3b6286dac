package serverutils

import "github.com/gofiber/fiber/v2"

// APIResponse is the generic success envelope for endpoints that do not
// define their own collaborator-facing shape.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

func SuccessMessage(message string) APIResponse[any] {
	return APIResponse[any]{
		Success: true,
		Message: message,
	}
}

// ErrorResponse is the uniform failure shape: success=false plus an error
// string the caller can show.
func ErrorResponse(code int, message string) fiber.Map {
	return fiber.Map{
		"success": false,
		"code":    code,
		"error":   message,
	}
}
