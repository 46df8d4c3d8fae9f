// Package validation содержит функции валидации входных данных.
package validation

import "regexp"

var customerPhonePattern = regexp.MustCompile(`^01[0125][0-9]{8}$`)

// IsValidCustomerPhone проверяет номер мобильного телефона клиента вида 01[0125]XXXXXXXX.
func IsValidCustomerPhone(phone string) bool {
	return customerPhonePattern.MatchString(phone)
}
