// Copyright 2026 Printforge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

// Order item fulfillment types.
const (
	FulfillmentTypePrintOnDemand = "print_on_demand"
	FulfillmentTypeStocked       = "stocked"
	FulfillmentTypeDigital       = "digital"
)

// Order is the read-only order view the orchestrator consumes at pipeline
// creation time. Ownership of order data lives with the commerce service.
type Order struct {
	BaseModel
	OrderId    string      `gorm:"column:order_id;uniqueIndex" json:"orderId"`
	BrandId    string      `gorm:"column:brand_id;index" json:"brandId"`
	TotalCents int64       `gorm:"column:total_cents" json:"totalCents"`
	Currency   string      `gorm:"column:currency" json:"currency"`
	Status     string      `gorm:"column:status" json:"status"`
	Items      []OrderItem `gorm:"foreignKey:OrderId;references:OrderId" json:"items"`
}

func (Order) TableName() string {
	return "t_order"
}

// OrderItem is one line item of an order.
type OrderItem struct {
	BaseModel
	OrderItemId     string `gorm:"column:order_item_id;uniqueIndex" json:"orderItemId"`
	OrderId         string `gorm:"column:order_id;index" json:"orderId"`
	ProductId       string `gorm:"column:product_id" json:"productId"`
	Quantity        int    `gorm:"column:quantity" json:"quantity"`
	PriceCents      int64  `gorm:"column:price_cents" json:"priceCents"`
	FulfillmentType string `gorm:"column:fulfillment_type" json:"fulfillmentType"`
	DesignId        string `gorm:"column:design_id" json:"designId"`
	CustomizationId string `gorm:"column:customization_id" json:"customizationId"`
}

func (OrderItem) TableName() string {
	return "t_order_item"
}

// HasDesignRef reports whether the item carries a design or customization
// reference that requires rendering.
func (i OrderItem) HasDesignRef() bool {
	return i.DesignId != "" || i.CustomizationId != ""
}
