package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OrderStatus описывает статус заказа. Порядковые значения совпадают с контрактом бэкенда.
type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusWaitingForConfirmation
	StatusInProgress
	StatusDelivered
	StatusDeliveredToCourier
	StatusDeclined
	StatusUnreachableCustomer
	StatusPartialDelivery
	StatusCanceledByRecipient
	StatusDeclinedWithPartialPayment
	StatusDeclinedWithFullPayment
	statusCount
)

var statusNames = [...]string{
	StatusPending:                    "Pending",
	StatusWaitingForConfirmation:     "WaitingForConfirmation",
	StatusInProgress:                 "InProgress",
	StatusDelivered:                  "Delivered",
	StatusDeliveredToCourier:         "DeliveredToCourier",
	StatusDeclined:                   "Declined",
	StatusUnreachableCustomer:        "UnreachableCustomer",
	StatusPartialDelivery:            "PartialDelivery",
	StatusCanceledByRecipient:        "CanceledByRecipient",
	StatusDeclinedWithPartialPayment: "DeclinedWithPartialPayment",
	StatusDeclinedWithFullPayment:    "DeclinedWithFullPayment",
}

func _() {
	var x [1]struct{}
	_ = x[len(statusNames)-int(statusCount)]
}

// Statuses возвращает все статусы в порядке их порядковых значений.
func Statuses() []OrderStatus {
	res := make([]OrderStatus, 0, statusCount)
	for s := StatusPending; s < statusCount; s++ {
		res = append(res, s)
	}
	return res
}

// Valid сообщает, входит ли значение в перечисление.
func (s OrderStatus) Valid() bool {
	return s >= StatusPending && s < statusCount
}

func (s OrderStatus) String() string {
	if !s.Valid() {
		return "OrderStatus(" + strconv.Itoa(int(s)) + ")"
	}
	return statusNames[s]
}

// ParseOrderStatus разбирает статус по имени или порядковому номеру.
func ParseOrderStatus(v string) (OrderStatus, error) {
	if n, err := strconv.Atoi(v); err == nil {
		s := OrderStatus(n)
		if !s.Valid() {
			return 0, fmt.Errorf("unknown order status %d", n)
		}
		return s, nil
	}
	for i, name := range statusNames {
		if name == v {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}

// MarshalJSON кодирует статус порядковым номером.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON принимает как порядковый номер, так и имя статуса.
// Неизвестное имя трактуется как Pending, так же поступает панель управления.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = StatusPending
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, err := ParseOrderStatus(name)
		if err != nil {
			parsed = StatusPending
		}
		*s = parsed
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode order status: %w", err)
	}
	if !OrderStatus(n).Valid() {
		return fmt.Errorf("unknown order status %d", n)
	}
	*s = OrderStatus(n)
	return nil
}
