package handlers

import (
	"context"
	"net/http"
	"time"

	"anypos-register/internal/hardware/printer"

	"github.com/gin-gonic/gin"
)

// Peripherals is the till hardware, implemented by printer.Service.
type Peripherals interface {
	Status(ctx context.Context) printer.Status
	TestPrint(ctx context.Context) error
	OpenCashDrawer(ctx context.Context) error
}

type HardwareHTTPHandler struct {
	devices Peripherals
}

func NewHardwareHTTPHandler(devices Peripherals) *HardwareHTTPHandler {
	return &HardwareHTTPHandler{
		devices: devices,
	}
}

func (h *HardwareHTTPHandler) PrinterStatus(c *gin.Context) {
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, successResponse("Printer status retrieved", h.devices.Status(ctx)))
}

func (h *HardwareHTTPHandler) TestPrint(c *gin.Context) {
	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	if err := h.devices.TestPrint(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("Test print failed: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Test page sent to printer", nil))
}

func (h *HardwareHTTPHandler) OpenCashDrawer(c *gin.Context) {
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	if err := h.devices.OpenCashDrawer(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("Failed to open cash drawer: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cash drawer opened", nil))
}
