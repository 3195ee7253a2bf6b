package revolve

import (
	"encoding/json"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

const (
	platformShopify       = "SHOPIFY"
	defaultShippingOption = "ontrac"
	financialStatusPaid   = "paid"
)

// WebhookOrder is the subset of the REST order webhook body the sync reads.
type WebhookOrder struct {
	ID                   flexString     `json:"id"`
	AdminGraphQLAPIID    string         `json:"admin_graphql_api_id"`
	Email                string         `json:"email"`
	FinancialStatus      string         `json:"financial_status"`
	CheckoutID           flexString     `json:"checkout_id"`
	PaymentGatewayNames  []string       `json:"payment_gateway_names"`
	Tags                 string         `json:"tags"`
	DiscountCodes        []Discount     `json:"discount_codes"`
	DiscountApplications []Discount     `json:"discount_applications"`
	ShippingAddress      *Address       `json:"shipping_address"`
	LineItems            []OrderLineRef `json:"line_items"`
}

// Discount covers both discount_codes and discount_applications entries.
type Discount struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Address is a webhook shipping address.
type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Province    string `json:"province"`
}

// OrderLineRef is a webhook line item.
type OrderLineRef struct {
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	VariantTitle string `json:"variant_title"`
}

// OrderNumericID returns the legacy numeric order id from either id field.
func (o WebhookOrder) OrderNumericID() string {
	if id := strings.TrimSpace(string(o.ID)); id != "" {
		return id
	}
	return shopify.LegacyID(o.AdminGraphQLAPIID)
}

// ParseWebhookOrder decodes a raw order webhook body.
func ParseWebhookOrder(raw []byte) (*WebhookOrder, error) {
	var order WebhookOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order payload")
	}
	if order.OrderNumericID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order payload missing id")
	}
	return &order, nil
}

// OrderPayload is the body of a downstream order submission.
type OrderPayload struct {
	SubID           json.Number      `json:"subId"`
	Origin          string           `json:"origin"`
	User            User             `json:"user"`
	ShippingAddress *ShippingAddress `json:"shippingAddress"`
	ShippingOption  string           `json:"shippingOption"`
	PromoCode       PromoCode        `json:"promoCode"`
	ShoppingBag     ShoppingBag      `json:"shoppingBag"`
}

type User struct {
	Email string `json:"email"`
}

type ShippingAddress struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	Street2     string `json:"street2"`
	City        string `json:"city"`
	ZipCode     string `json:"zipCode"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	State       string `json:"state"`
}

type PromoCode struct {
	Code string `json:"code"`
}

type ShoppingBag struct {
	CartItems []CartItem `json:"cartItems"`
}

type CartItem struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
}

// PaymentPayload is the body of a downstream payment submission.
type PaymentPayload struct {
	SubID     json.Number `json:"subId"`
	Gateway   string      `json:"gateway"`
	Platform  string      `json:"platform"`
	Type      string      `json:"type"`
	PaymentID json.Number `json:"paymentId,omitempty"`
	Invoice   string      `json:"invoice"`
}

// BuildOrderPayload maps a created order onto the downstream order body.
func BuildOrderPayload(order *WebhookOrder) (OrderPayload, error) {
	if order == nil {
		return OrderPayload{}, pkgerrors.New(pkgerrors.CodeValidation, "missing order payload")
	}
	subID, err := numericID(order.OrderNumericID())
	if err != nil {
		return OrderPayload{}, err
	}

	items := make([]CartItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, CartItem{
			Code:     item.SKU,
			Quantity: item.Quantity,
			Size:     item.VariantTitle,
		})
	}

	return OrderPayload{
		SubID:           subID,
		Origin:          platformShopify,
		User:            User{Email: order.Email},
		ShippingAddress: buildShippingAddress(order.ShippingAddress),
		ShippingOption:  defaultShippingOption,
		PromoCode:       PromoCode{Code: couponCodes(order)},
		ShoppingBag:     ShoppingBag{CartItems: items},
	}, nil
}

// BuildPaymentPayload maps a paid order onto the downstream payment body.
func BuildPaymentPayload(order *WebhookOrder) (PaymentPayload, error) {
	if order == nil {
		return PaymentPayload{}, pkgerrors.New(pkgerrors.CodeValidation, "missing order payload")
	}
	if order.FinancialStatus != financialStatusPaid {
		return PaymentPayload{}, pkgerrors.New(pkgerrors.CodeValidation, "order is not paid").
			WithDetails(map[string]any{"financial_status": order.FinancialStatus})
	}
	subID, err := numericID(order.OrderNumericID())
	if err != nil {
		return PaymentPayload{}, err
	}

	payload := PaymentPayload{
		SubID:    subID,
		Gateway:  platformShopify,
		Platform: platformShopify,
	}
	if len(order.PaymentGatewayNames) > 0 {
		payload.Type = order.PaymentGatewayNames[0]
	}
	if checkout := strings.TrimSpace(string(order.CheckoutID)); checkout != "" {
		if id, err := numericID(checkout); err == nil {
			payload.PaymentID = id
		}
	}
	return payload, nil
}

func buildShippingAddress(addr *Address) *ShippingAddress {
	if addr == nil {
		return nil
	}
	return &ShippingAddress{
		Name:        strings.TrimSpace(addr.FirstName + " " + addr.LastName),
		Street:      addr.Address1,
		Street2:     addr.Address2,
		City:        addr.City,
		ZipCode:     addr.Zip,
		Country:     addr.Country,
		CountryCode: addr.CountryCode,
		State:       addr.Province,
	}
}

// couponCodes joins discount codes followed by discount application codes or titles.
func couponCodes(order *WebhookOrder) string {
	codes := make([]string, 0, len(order.DiscountCodes)+len(order.DiscountApplications))
	for _, list := range [][]Discount{order.DiscountCodes, order.DiscountApplications} {
		for _, d := range list {
			value := strings.TrimSpace(d.Code)
			if value == "" {
				value = strings.TrimSpace(d.Title)
			}
			if value != "" {
				codes = append(codes, value)
			}
		}
	}
	return strings.Join(codes, ", ")
}

func numericID(value string) (json.Number, error) {
	trimmed := strings.TrimSpace(value)
	if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order id must be numeric").
			WithDetails(map[string]any{"id": value})
	}
	return json.Number(trimmed), nil
}
