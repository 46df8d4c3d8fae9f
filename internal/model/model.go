// Package model содержит доменные сущности консоли управления доставкой.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/mmeshcher/shipping-admin/internal/permission"
)

// Role описывает тип пользователя консоли.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleMerchant Role = "Merchant"
	RoleCourier  Role = "Courier"
)

// Actor описывает пользователя, от имени которого выполняется операция.
type Actor struct {
	ID   string
	Role Role
}

// Session описывает сеанс пользователя консоли. После создания сеанс не изменяется.
type Session struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	FullName    string         `json:"fullName,omitempty"`
	Email       string         `json:"email,omitempty"`
	Role        Role           `json:"role"`
	Permissions permission.Set `json:"permissions"`
	Token       string         `json:"token"`
	TokenExpiry time.Time      `json:"tokenExpiry"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Expired сообщает, истёк ли срок действия токена сеанса.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.TokenExpiry)
}

// Actor возвращает пользователя сеанса.
func (s *Session) Actor() Actor {
	return Actor{ID: s.UserID, Role: s.Role}
}

// OrderType описывает способ получения заказа.
type OrderType int

const (
	OrderTypePickup OrderType = iota
	OrderTypeDelivery
)

// PaymentType описывает способ оплаты заказа.
type PaymentType int

const (
	PaymentCollectible PaymentType = iota
	PaymentPrepaid
	PaymentChange
)

// Ref ссылается на справочник. Бэкенд присылает либо идентификатор, либо название.
type Ref struct {
	ID   int64
	Name string
}

// MarshalJSON кодирует идентификатор, а при его отсутствии название.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID != 0 || r.Name == "" {
		return []byte(strconv.FormatInt(r.ID, 10)), nil
	}
	return json.Marshal(r.Name)
}

// UnmarshalJSON принимает число, числовую строку или название.
func (r *Ref) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			*r = Ref{ID: id}
			return nil
		}
		*r = Ref{Name: s}
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*r = Ref{ID: id}
	return nil
}

// Product описывает позицию заказа.
type Product struct {
	Name     string  `json:"name" validate:"required"`
	Weight   float64 `json:"weight" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gte=1"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// Order описывает заказ на доставку.
type Order struct {
	ID                  int64       `json:"id,omitempty"`
	Status              OrderStatus `json:"status"`
	OrderType           OrderType   `json:"orderTypes" validate:"gte=0,lte=1"`
	PaymentType         PaymentType `json:"paymentType" validate:"gte=0,lte=2"`
	IsOutOfCityShipping bool        `json:"isOutOfCityShipping"`
	ShippingID          int64       `json:"shippingId" validate:"gt=0"`
	MerchantID          string      `json:"merchantId" validate:"required"`
	MerchantName        string      `json:"merchantName,omitempty"`
	CourierID           string      `json:"courierId,omitempty"`
	CourierName         string      `json:"CourierName,omitempty"`
	EmployeeID          string      `json:"employeeId,omitempty"`
	Branch              Ref         `json:"branch"`
	Region              Ref         `json:"region"`
	City                Ref         `json:"city"`
	Products            []Product   `json:"products" validate:"required,min=1,dive"`
	TotalWeight         float64     `json:"totalWeight"`
	OrderCost           float64     `json:"orderCost"`
	ShippingCost        float64     `json:"shippingCost,omitempty"`
	CustomerName        string      `json:"customerName" validate:"required,min=3"`
	CustomerPhone1      string      `json:"customerPhone1" validate:"required,egphone"`
	CustomerPhone2      string      `json:"customerPhone2,omitempty" validate:"omitempty,egphone"`
	CustomerAddress     string      `json:"customerAddress" validate:"required"`
	CustomerEmail       string      `json:"customerEmail,omitempty" validate:"omitempty,email"`
	Notes               string      `json:"notes,omitempty"`
	CreatedAt           string      `json:"createdAt,omitempty"`
}

// Totals возвращает суммарный вес и стоимость позиций.
func Totals(products []Product) (weight, cost float64) {
	for _, p := range products {
		weight += p.Weight * float64(p.Quantity)
		cost += p.Price * float64(p.Quantity)
	}
	return weight, cost
}

// Recalculate пересчитывает TotalWeight и OrderCost по позициям заказа.
func (o *Order) Recalculate() {
	o.TotalWeight, o.OrderCost = Totals(o.Products)
}

// Courier описывает курьера, доступного для назначения.
type Courier struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	BranchName string `json:"branchName"`
}

// UnmarshalJSON принимает идентификатор как "id", так и "Id": бэкенд использует оба варианта.
func (c *Courier) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string `json:"id"`
		LegacyID   string `json:"Id"`
		FullName   string `json:"fullName"`
		BranchName string `json:"branchName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	if c.ID == "" {
		c.ID = raw.LegacyID
	}
	c.FullName = raw.FullName
	c.BranchName = raw.BranchName
	return nil
}

// CourierAssignment связывает заказ с курьером на время операции назначения.
type CourierAssignment struct {
	OrderID   int64
	CourierID string
}
