package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrUserNotFound, fiber.StatusNotFound},
		{fmt.Errorf("load: %w", services.ErrPostNotFound), fiber.StatusNotFound},
		{services.ErrInvalidTransition, fiber.StatusConflict},
		{services.ErrAlreadyInState, fiber.StatusConflict},
		{services.ErrAdminRequired, fiber.StatusForbidden},
		{services.ErrSelfBlock, fiber.StatusBadRequest},
		{services.ErrInvalidAction, fiber.StatusBadRequest},
		{&services.DependencyFailure{Dependency: "account store", Op: "suspend user", Err: errors.New("down")}, fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
