// Package permission содержит закрытое перечисление ключей доступа консоли.
//
// Ключ имеет вид "<Resource>:<Action><Resource>", например "Orders:UpdateOrders".
// Проверка доступа выполняется только точным совпадением ключей.
package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknown возвращается при разборе ключа, отсутствующего в таблице.
var ErrUnknown = errors.New("unknown permission key")

// Resource описывает раздел системы, к которому относится ключ.
type Resource uint8

const (
	Accounts Resource = iota
	Settings
	ShippingTypes
	Permissions
	Bank
	MoneySafe
	Employees
	Merchants
	Couriers
	Regions
	Cities
	Branches
	Orders
	OrderReports
	Dashboard
	resourceCount
)

var resourceNames = [...]string{
	Accounts:      "Accounts",
	Settings:      "Settings",
	ShippingTypes: "ShippingTypes",
	Permissions:   "Permissions",
	Bank:          "Bank",
	MoneySafe:     "MoneySafe",
	Employees:     "Employees",
	Merchants:     "Merchants",
	Couriers:      "Couriers",
	Regions:       "Regions",
	Cities:        "Cities",
	Branches:      "Branches",
	Orders:        "Orders",
	OrderReports:  "OrderReports",
	Dashboard:     "Dashboard",
}

// Action описывает действие над разделом.
type Action uint8

const (
	Add Action = iota
	View
	Update
	Delete
	actionCount
)

var actionNames = [...]string{
	Add:    "Add",
	View:   "View",
	Update: "Update",
	Delete: "Delete",
}

// Таблицы имён должны покрывать перечисления целиком.
func _() {
	var x [1]struct{}
	_ = x[len(resourceNames)-int(resourceCount)]
	_ = x[len(actionNames)-int(actionCount)]
}

func (r Resource) String() string {
	if r >= resourceCount {
		return fmt.Sprintf("Resource(%d)", r)
	}
	return resourceNames[r]
}

func (a Action) String() string {
	if a >= actionCount {
		return fmt.Sprintf("Action(%d)", a)
	}
	return actionNames[a]
}

// Key описывает ключ доступа из фиксированной таблицы.
type Key struct {
	resource Resource
	action   Action
}

// Часто используемые ключи.
var (
	DashboardView = Key{Dashboard, View}
	OrdersAdd     = Key{Orders, Add}
	OrdersView    = Key{Orders, View}
	OrdersUpdate  = Key{Orders, Update}
	OrdersDelete  = Key{Orders, Delete}
)

// New возвращает ключ для раздела и действия.
func New(r Resource, a Action) Key {
	return Key{resource: r, action: a}
}

// Resource возвращает раздел ключа.
func (k Key) Resource() Resource { return k.resource }

// Action возвращает действие ключа.
func (k Key) Action() Action { return k.action }

// String возвращает строковое представление ключа в формате бэкенда.
func (k Key) String() string {
	// У панели есть только просмотр, и его ключ не повторяет имя раздела.
	if k.resource == Dashboard {
		return resourceNames[Dashboard] + ":" + k.action.String()
	}
	return k.resource.String() + ":" + k.action.String() + k.resource.String()
}

// All возвращает все ключи таблицы.
func All() []Key {
	keys := make([]Key, 0, int(resourceCount)*int(actionCount))
	for r := Resource(0); r < resourceCount; r++ {
		if r == Dashboard {
			keys = append(keys, DashboardView)
			continue
		}
		for a := Action(0); a < actionCount; a++ {
			keys = append(keys, Key{r, a})
		}
	}
	return keys
}

var byName = func() map[string]Key {
	m := make(map[string]Key)
	for _, k := range All() {
		m[k.String()] = k
	}
	return m
}()

// Parse разбирает строковый ключ. Совпадение должно быть точным.
func Parse(s string) (Key, error) {
	k, ok := byName[s]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return k, nil
}

// MarshalText кодирует ключ строкой.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText разбирает ключ из строки.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Set хранит множество ключей доступа пользователя.
type Set map[Key]struct{}

// NewSet создаёт множество из перечисленных ключей.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// ParseSet строит множество из строк бэкенда и возвращает ключи, которых нет в таблице.
func ParseSet(values []string) (Set, []string) {
	s := make(Set, len(values))
	var unknown []string
	for _, v := range values {
		k, err := Parse(v)
		if err != nil {
			unknown = append(unknown, v)
			continue
		}
		s[k] = struct{}{}
	}
	return s, unknown
}

// Has проверяет наличие ключа во множестве.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Strings возвращает отсортированные строковые ключи.
func (s Set) Strings() []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, k.String())
	}
	sort.Strings(res)
	return res
}

// MarshalJSON кодирует множество массивом строк.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON разбирает массив строк, пропуская неизвестные ключи.
func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s, _ = ParseSet(values)
	return nil
}
