package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Eric920418/shoe-sub003/internal/config"
	"github.com/Eric920418/shoe-sub003/internal/middleware"
	"github.com/Eric920418/shoe-sub003/internal/model"
	"github.com/Eric920418/shoe-sub003/internal/services"

	"github.com/labstack/echo/v4"
)

func registerPaymentRoutes(e *echo.Echo, g *echo.Group, ps *services.PaymentService) {

	// ============================
	// GATEWAY CALLBACKS
	// (NO JWT, must be public)
	// ============================

	// Server-to-server webhook. Anything short of a storage failure must
	// answer 200: the gateway re-delivers non-200 responses indefinitely.
	e.POST("/payment/notify", func(c echo.Context) error {
		tradeInfo := c.FormValue("TradeInfo")
		tradeSha := c.FormValue("TradeSha")

		if err := ps.HandleNotify(c.Request().Context(), tradeInfo, tradeSha); err != nil {
			// storage failure: a non-200 makes the gateway retry later,
			// which is exactly what we want here
			return c.String(http.StatusInternalServerError, "error")
		}
		return c.String(http.StatusOK, "OK")
	})

	// Browser redirect target. Always ends in a redirect to a result page,
	// never an error body.
	e.POST("/payment/return", func(c echo.Context) error {
		target := ps.HandleReturn(
			c.Request().Context(),
			c.FormValue("TradeInfo"),
			c.FormValue("TradeSha"),
		)
		return c.Redirect(http.StatusFound, target)
	})

	// ============================
	// PAYMENT INITIATION
	// (JWT protected)
	// ============================
	p := g.Group("/payments")
	p.Use(middleware.JWTMiddleware())

	p.POST("/:orderId", func(c echo.Context) error {
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

		var body struct {
			PaymentType model.PaymentType `json:"payment_type"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid payload",
			})
		}

		form, err := ps.CreatePayment(
			c.Request().Context(),
			orderID,
			cl.CustomerID,
			body.PaymentType,
		)
		if err != nil {
			return paymentError(c, err)
		}

		return c.JSON(http.StatusOK, form)
	})
}

func paymentError(c echo.Context, err error) error {
	var ce *config.Error
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, services.ErrUnknownOrder):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, services.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.As(err, &ce):
		// fatal misconfiguration; no point telling the shopper more
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
