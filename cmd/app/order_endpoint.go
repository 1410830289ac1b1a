package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Eric920418/shoe-sub003/internal/middleware"
	"github.com/Eric920418/shoe-sub003/internal/services"

	"github.com/labstack/echo/v4"
)

func registerOrderRoutes(g *echo.Group, ps *services.PaymentService) {

	o := g.Group("/orders")
	o.Use(middleware.JWTMiddleware())

	// Read-only payment view of an order. This subsystem is the sole writer
	// of the statuses it returns.
	o.GET("/:orderId/payment", func(c echo.Context) error {
		cl := middleware.GetClaims(c)
		if cl == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error": "unauthenticated",
			})
		}

		orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
		if err != nil || orderID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid order id",
			})
		}

		view, err := ps.GetPaymentStatus(c.Request().Context(), orderID, cl.CustomerID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrForbidden):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			case errors.Is(err, services.ErrUnknownOrder):
				return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
			default:
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
		}

		return c.JSON(http.StatusOK, view)
	})
}
