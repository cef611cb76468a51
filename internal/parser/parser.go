package parser

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

var ErrUnknownFormat = errors.New("unrecognized payload format")
var ErrNoEmbeds = errors.New("embed payload has no embeds")

// Fields is the flat set of order attributes extracted from a payload.
// Zero values mean the payload did not carry the field.
type Fields struct {
	OrderNumber     string
	Product         string
	Price           float64
	Total           float64
	Commission      float64
	Quantity        int
	Email           string
	CustomerName    string
	Profile         string
	ProxyList       string
	ReferenceNumber string
	Status          order.Status
	TrackingNumber  string
	PaymentMethod   string
	ShippingAddress string
	ShippingMethod  string
	Notes           string
	OrderDate       time.Time
}

// Parse extracts order fields from a payload, auto-detecting the format:
// embed-style JSON, flat JSON, or labeled text.
func Parse(payload []byte, contentType string) (Fields, error) {
	content := string(payload)

	if strings.Contains(strings.ToLower(contentType), "json") {
		if fields, ok := tryJSON(content); ok {
			return fields, nil
		}
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if fields, ok := tryJSON(content); ok {
			return fields, nil
		}
	}

	if IsLabeledText(content) {
		return parseLabeledText(content), nil
	}

	if fields, ok := tryJSON(content); ok {
		return fields, nil
	}

	return Fields{}, ErrUnknownFormat
}

func tryJSON(content string) (Fields, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return Fields{}, false
	}

	if _, ok := payload["embeds"]; ok {
		fields, err := parseEmbeds(payload)
		if err != nil {
			return Fields{}, false
		}

		return fields, true
	}

	return fieldsFromMap(payload), true
}

// IsLabeledText reports whether the content looks like a labeled text
// notification rather than JSON.
func IsLabeledText(content string) bool {
	indicators := []string{
		"Successful Checkout",
		"Product\n",
		"Price\n",
		"Order Number\n",
		"Email\n",
	}

	for _, indicator := range indicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}

	return false
}

// parseEmbeds flattens an embed-style payload into text and parses it as a
// labeled message. Content may sit in the author name, title, description
// or fields of the first embed.
func parseEmbeds(payload map[string]any) (Fields, error) {
	embeds, _ := payload["embeds"].([]any)
	if len(embeds) == 0 {
		return Fields{}, ErrNoEmbeds
	}

	embed, _ := embeds[0].(map[string]any)

	var parts []string
	if author, ok := embed["author"].(map[string]any); ok {
		if name := toString(author["name"]); name != "" {
			parts = append(parts, name)
		}
	}
	if title := toString(embed["title"]); title != "" {
		parts = append(parts, title)
	}
	if description := toString(embed["description"]); description != "" {
		parts = append(parts, description)
	}
	if fields, ok := embed["fields"].([]any); ok {
		for _, f := range fields {
			field, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if name := toString(field["name"]); name != "" {
				parts = append(parts, name)
			}
			if value := toString(field["value"]); value != "" {
				parts = append(parts, value)
			}
		}
	}

	return parseLabeledText(strings.Join(parts, "\n")), nil
}

var (
	reProduct     = regexp.MustCompile(`(?i)Product\n([^\n]*)`)
	rePrice       = regexp.MustCompile(`(?i)Price\n\$?([\d,]+\.?\d*)`)
	reProfile     = regexp.MustCompile(`(?i)Profile\n([^\n]*)`)
	reProxy       = regexp.MustCompile(`(?i)(?:Proxy Details|Proxy List|Proxy)\n([^\n]*)`)
	reOrderNumber = regexp.MustCompile(`(?i)Order Number\n#?([^\n]*)`)
	reEmail       = regexp.MustCompile(`(?i)Email\n([^\n]*)`)
	reQuantity    = regexp.MustCompile(`(?i)Quantity\n(\d+)`)
	reTotal       = regexp.MustCompile(`(?i)Total\n\$?([\d,]+\.?\d*)`)
	reCommission  = regexp.MustCompile(`(?i)Commission\n\$?([\d,]+\.?\d*)`)
	reTracking    = regexp.MustCompile(`(?i)Tracking(?: Number)?\n([^\n]*)`)
	reReference   = regexp.MustCompile(`(?i)Reference(?: #)?\n([^\n]*)`)
	reStatus      = regexp.MustCompile(`(?i)Status\n([^\n]*)`)
	rePayment     = regexp.MustCompile(`(?i)Payment(?: Method)?\n([^\n]*)`)
	reShipAddr    = regexp.MustCompile(`(?i)Shipping Address\n([^\n]*)`)
	reShipMethod  = regexp.MustCompile(`(?i)Shipping Method\n([^\n]*)`)
)

// parseLabeledText extracts fields from label-on-one-line, value-on-the-next
// notifications.
func parseLabeledText(text string) Fields {
	fields := Fields{
		Quantity:  1,
		OrderDate: time.Now().UTC(),
	}

	if m := reProduct.FindStringSubmatch(text); m != nil {
		fields.Product = strings.TrimSpace(m[1])
	}
	if m := rePrice.FindStringSubmatch(text); m != nil {
		price := parseAmount(m[1])
		fields.Price = price
		// Total defaults to the price unless a Total label follows.
		fields.Total = price
	}
	if m := reProfile.FindStringSubmatch(text); m != nil {
		fields.Profile = strings.TrimSpace(m[1])
	}
	if m := reProxy.FindStringSubmatch(text); m != nil {
		fields.ProxyList = strings.TrimSpace(m[1])
	}
	if m := reOrderNumber.FindStringSubmatch(text); m != nil {
		fields.OrderNumber = strings.TrimLeft(strings.TrimSpace(m[1]), "#")
	}
	if m := reEmail.FindStringSubmatch(text); m != nil {
		fields.Email = strings.TrimSpace(m[1])
	}
	if m := reQuantity.FindStringSubmatch(text); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil {
			fields.Quantity = qty
		}
	}
	if m := reTotal.FindStringSubmatch(text); m != nil {
		fields.Total = parseAmount(m[1])
	}
	if m := reCommission.FindStringSubmatch(text); m != nil {
		fields.Commission = parseAmount(m[1])
	}
	if m := reTracking.FindStringSubmatch(text); m != nil {
		fields.TrackingNumber = strings.TrimSpace(m[1])
	}
	if m := reReference.FindStringSubmatch(text); m != nil {
		fields.ReferenceNumber = strings.TrimSpace(m[1])
	}
	if m := reStatus.FindStringSubmatch(text); m != nil {
		if status, err := order.ParseStatus(strings.TrimSpace(m[1])); err == nil {
			fields.Status = status
		}
	}
	if m := rePayment.FindStringSubmatch(text); m != nil {
		fields.PaymentMethod = strings.TrimSpace(m[1])
	}
	if m := reShipAddr.FindStringSubmatch(text); m != nil {
		fields.ShippingAddress = strings.TrimSpace(m[1])
	}
	if m := reShipMethod.FindStringSubmatch(text); m != nil {
		fields.ShippingMethod = strings.TrimSpace(m[1])
	}

	return fields
}

// fieldsFromMap maps flat JSON payloads, accepting the alternative key
// names different senders use.
func fieldsFromMap(payload map[string]any) Fields {
	fields := Fields{
		OrderNumber:     firstString(payload, "order_number", "order_id"),
		Product:         firstString(payload, "product", "product_name", "item"),
		Price:           firstFloat(payload, "price", "unit_price"),
		Total:           firstFloat(payload, "total", "total_price", "amount"),
		Commission:      firstFloat(payload, "commission", "profit"),
		Email:           firstString(payload, "email", "customer_email"),
		CustomerName:    firstString(payload, "customer_name", "name"),
		Profile:         firstString(payload, "profile"),
		ProxyList:       firstString(payload, "proxy_list", "proxy"),
		ReferenceNumber: firstString(payload, "reference", "reference_number"),
		TrackingNumber:  firstString(payload, "tracking", "tracking_number", "shipment_id"),
		PaymentMethod:   firstString(payload, "payment_method"),
		ShippingAddress: firstString(payload, "shipping_address"),
		ShippingMethod:  firstString(payload, "shipping_method"),
		Notes:           firstString(payload, "notes"),
	}

	fields.Quantity = firstInt(payload, "quantity", "qty")
	if fields.Quantity == 0 {
		fields.Quantity = 1
	}

	if raw := firstString(payload, "status", "order_status"); raw != "" {
		if status, err := order.ParseStatus(raw); err == nil {
			fields.Status = status
		}
	}

	fields.OrderDate = firstTime(payload, "order_date", "created_at", "date")
	if fields.OrderDate.IsZero() {
		fields.OrderDate = time.Now().UTC()
	}

	return fields
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := toString(payload[key]); s != "" {
			return s
		}
	}

	return ""
}

func firstFloat(payload map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if f := toFloat(payload[key]); f != 0 {
			return f
		}
	}

	return 0
}

func firstInt(payload map[string]any, keys ...string) int {
	for _, key := range keys {
		if f := toFloat(payload[key]); f != 0 {
			return int(f)
		}
	}

	return 0
}

func firstTime(payload map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		if s := toString(payload[key]); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}

func toString(v any) string {
	s, _ := v.(string)

	return strings.TrimSpace(s)
}

func toFloat(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		cleaned := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(value), "$"), ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

func parseAmount(s string) float64 {
	cleaned := strings.ReplaceAll(s, ",", "")
	f, _ := strconv.ParseFloat(cleaned, 64)

	return f
}
