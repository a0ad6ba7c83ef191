package printer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDevice struct {
	jobs [][]byte
	err  error
}

func (d *recordingDevice) Write(_ context.Context, data []byte) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, append([]byte(nil), data...))
	return nil
}

func (d *recordingDevice) Available(context.Context) bool { return d.err == nil }
func (d *recordingDevice) Kind() string                   { return "recording" }

func TestRenderReceipt(t *testing.T) {
	out := RenderReceipt(Receipt{
		Reference: "SALE-1A2B3C4D",
		Date:      time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
		Cashier:   "alice",
		Lines: []ReceiptLine{
			{Name: "Coffee", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(20)},
			{Name: "A very long product name that will not fit", Quantity: 1, UnitPrice: decimal.NewFromInt(5), Total: decimal.NewFromInt(5)},
		},
		Subtotal:      decimal.NewFromInt(25),
		Discount:      decimal.RequireFromString("2.50"),
		Tax:           decimal.RequireFromString("2.25"),
		Total:         decimal.RequireFromString("24.75"),
		AmountPaid:    decimal.NewFromInt(30),
		Change:        decimal.RequireFromString("5.25"),
		PaymentMethod: "cash",
	}, "Corner Shop", 32)

	assert.True(t, bytes.HasPrefix(out, []byte{ESC, '@'}))
	assert.Contains(t, string(out), "Receipt: SALE-1A2B3C4D")
	assert.Contains(t, string(out), "Date: 2026-03-01 14:30:00")
	assert.Contains(t, string(out), "24.75")
	assert.Contains(t, string(out), "-2.50")
	assert.Contains(t, string(out), "5.25")
	assert.Contains(t, string(out), "CASH")
	assert.Contains(t, string(out), "Cashier: alice")
	assert.NotContains(t, string(out), "will not fit")
	assert.True(t, bytes.HasSuffix(out, []byte{GS, 'V', 0x41, 0x03}))
}

func TestColumnsPadsToWidth(t *testing.T) {
	doc := NewDocument(20)
	doc.Columns("TOTAL:", "24.75")
	line := bytes.TrimPrefix(doc.Bytes(), []byte{ESC, '@'})
	assert.Equal(t, "TOTAL:         24.75\n", string(line))
}

func TestOpenCashDrawerSendsPulse(t *testing.T) {
	dev := &recordingDevice{}
	svc := NewService(dev, 32, "")

	require.NoError(t, svc.OpenCashDrawer(context.Background()))
	require.Len(t, dev.jobs, 1)
	assert.True(t, bytes.Contains(dev.jobs[0], []byte{ESC, 'p', DrawerPin0, 0xFF, 0xFF}))
}

func TestServicePropagatesDeviceError(t *testing.T) {
	dev := &recordingDevice{err: errors.New("paper out")}
	svc := NewService(dev, 32, "")

	err := svc.TestPrint(context.Background())
	assert.EqualError(t, err, "paper out")
	assert.Equal(t, Status{Type: "recording", Available: false}, svc.Status(context.Background()))
}

func TestNewDevice(t *testing.T) {
	d, err := NewDevice("none", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "none", d.Kind())

	_, err = NewDevice("usb", "", "", 0)
	assert.Error(t, err)

	_, err = NewDevice("network", "", "", 0)
	assert.Error(t, err)

	_, err = NewDevice("serial", "", "", 0)
	assert.Error(t, err)

	d, err = NewDevice("network", "", "127.0.0.1:9100", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "network", d.Kind())
}
