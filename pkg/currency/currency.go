// Package currency provides the registry of currencies the application
// supports. Exchange rates are stored per user against a single anchor
// currency; this package only answers "is this a currency we know about"
// and normalizes codes.
package currency

import (
	"regexp"
	"sort"
	"strings"
)

// Code represents an ISO 4217 currency code (e.g. "USD", "EUR").
type Code string

// String returns the code as a plain string.
func (c Code) String() string { return string(c) }

// DefaultAnchor is the anchor currency used when a user has not chosen one.
const DefaultAnchor = Code("USD")

var codeFormat = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValidFormat reports whether code is a well-formed ISO 4217 code
// (three uppercase letters).
func IsValidFormat(code string) bool {
	return codeFormat.MatchString(code)
}

// Normalize upper-cases and trims a currency code so lookups are
// case-insensitive.
func Normalize(code string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(code)))
}

// supported is the static set of currencies users may hold accounts and
// rates in.
var supported = map[Code]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CHF": {},
	"CAD": {}, "AUD": {}, "NZD": {}, "SEK": {}, "NOK": {},
	"DKK": {}, "PLN": {}, "CZK": {}, "HUF": {}, "RON": {},
	"BRL": {}, "MXN": {}, "ARS": {}, "CLP": {}, "COP": {},
	"PEN": {}, "NIO": {}, "CRC": {}, "GTQ": {}, "HNL": {},
	"DOP": {}, "UYU": {}, "BOB": {}, "PYG": {}, "VES": {},
	"CNY": {}, "HKD": {}, "SGD": {}, "KRW": {}, "INR": {},
	"IDR": {}, "MYR": {}, "PHP": {}, "THB": {}, "VND": {},
	"TRY": {}, "ZAR": {}, "EGP": {}, "NGN": {}, "KES": {},
	"MAD": {}, "ILS": {}, "SAR": {}, "AED": {}, "QAR": {},
}

// Registry answers membership questions about supported currencies.
type Registry struct{}

// NewRegistry returns the supported-currency registry.
func NewRegistry() *Registry { return &Registry{} }

// IsSupported reports whether the (case-normalized) code is a currency the
// application supports.
func (r *Registry) IsSupported(code string) bool {
	_, ok := supported[Normalize(code)]
	return ok
}

// Codes returns all supported codes in lexical order.
func (r *Registry) Codes() []Code {
	codes := make([]Code, 0, len(supported))
	for c := range supported {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
