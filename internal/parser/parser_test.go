package parser

import (
	"testing"

	"github.com/roms-labs/ingest-svc/internal/service/models/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labeledMessage = `Successful Checkout | Best Buy US
Product
STARLINK - Mini Kit AC Dual Band Wi-Fi System - White
Price
$299.99
Profile
Lennar #8-$48-@07
Proxy Details
Wealth Resi | http://proxy.example
Order Number
#BBY01-807102506907
Email
woozy_byes28@icloud.com`

func TestParse_LabeledText(t *testing.T) {
	fields, err := Parse([]byte(labeledMessage), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "STARLINK - Mini Kit AC Dual Band Wi-Fi System - White", fields.Product)
	assert.InDelta(t, 299.99, fields.Price, 1e-9)
	assert.InDelta(t, 299.99, fields.Total, 1e-9)
	assert.Equal(t, "Lennar #8-$48-@07", fields.Profile)
	assert.Equal(t, "Wealth Resi | http://proxy.example", fields.ProxyList)
	assert.Equal(t, "BBY01-807102506907", fields.OrderNumber)
	assert.Equal(t, "woozy_byes28@icloud.com", fields.Email)
	assert.Equal(t, 1, fields.Quantity)
	assert.False(t, fields.OrderDate.IsZero())
}

func TestParse_LabeledText_TotalAndQuantity(t *testing.T) {
	text := labeledMessage + `
Quantity
3
Total
$1,250.00
Commission
$48.50
Status
shipped`

	fields, err := Parse([]byte(text), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, 3, fields.Quantity)
	assert.InDelta(t, 1250.0, fields.Total, 1e-9)
	assert.InDelta(t, 48.5, fields.Commission, 1e-9)
	assert.Equal(t, order.StatusShipped, fields.Status)
}

func TestParse_LabeledText_UnknownStatusIgnored(t *testing.T) {
	text := labeledMessage + `
Status
yolo`

	fields, err := Parse([]byte(text), "text/plain")
	require.NoError(t, err)

	assert.Empty(t, fields.Status)
}

func TestParse_FlatJSON(t *testing.T) {
	payload := `{
		"order_id": "ORD-445",
		"product_name": "Nike Dunk Low",
		"unit_price": 119.99,
		"qty": 2,
		"customer_email": "buyer@example.com",
		"profit": 25.5,
		"tracking_number": "1Z999AA10123456784",
		"order_status": "processing"
	}`

	fields, err := Parse([]byte(payload), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "ORD-445", fields.OrderNumber)
	assert.Equal(t, "Nike Dunk Low", fields.Product)
	assert.InDelta(t, 119.99, fields.Price, 1e-9)
	assert.Equal(t, 2, fields.Quantity)
	assert.Equal(t, "buyer@example.com", fields.Email)
	assert.InDelta(t, 25.5, fields.Commission, 1e-9)
	assert.Equal(t, "1Z999AA10123456784", fields.TrackingNumber)
	assert.Equal(t, order.StatusProcessing, fields.Status)
}

func TestParse_FlatJSON_StringAmounts(t *testing.T) {
	payload := `{"order_number": "A-1", "product": "Desk", "price": "$1,099.00"}`

	fields, err := Parse([]byte(payload), "application/json")
	require.NoError(t, err)

	assert.InDelta(t, 1099.0, fields.Price, 1e-9)
}

func TestParse_EmbedJSON(t *testing.T) {
	payload := `{
		"embeds": [{
			"author": {"name": "Successful Checkout | Nike US"},
			"description": "Product\nNike Dunk Low\nPrice\n$120.00\nOrder Number\n#SNK-123\nEmail\ntest@example.com"
		}]
	}`

	fields, err := Parse([]byte(payload), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "Nike Dunk Low", fields.Product)
	assert.InDelta(t, 120.0, fields.Price, 1e-9)
	assert.Equal(t, "SNK-123", fields.OrderNumber)
	assert.Equal(t, "test@example.com", fields.Email)
}

func TestParse_EmbedJSON_FieldsSection(t *testing.T) {
	payload := `{
		"embeds": [{
			"title": "Order Update",
			"fields": [
				{"name": "Order Number", "value": "#F-77"},
				{"name": "Tracking", "value": "TRK-0099"}
			]
		}]
	}`

	fields, err := Parse([]byte(payload), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "F-77", fields.OrderNumber)
	assert.Equal(t, "TRK-0099", fields.TrackingNumber)
}

func TestParse_EmptyEmbeds(t *testing.T) {
	_, err := Parse([]byte(`{"embeds": []}`), "application/json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse([]byte("hello there"), "text/plain")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestIsLabeledText(t *testing.T) {
	assert.True(t, IsLabeledText("Successful Checkout | Store"))
	assert.True(t, IsLabeledText("Order Number\n#123"))
	assert.False(t, IsLabeledText(`{"order_number": "123"}`))
}
