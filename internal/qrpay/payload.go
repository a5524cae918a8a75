// Package qrpay builds the domestic and EU payment QR payloads printed on invoices.
package qrpay

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

const (
	maxNameRunes    = 70
	maxInfoRunes    = 70
	maxEPCAmount    = types.Cents(99999999999)
	defaultCurrency = "EUR"
)

var (
	ErrMissingIBAN = errors.New("iban is required")
	ErrInvalidIBAN = errors.New("iban checksum mismatch")
	ErrMissingName = errors.New("recipient name is required")
)

// Fields are the bank transfer fields both payloads are built from
type Fields struct {
	IBAN           string `json:"iban"`
	SWIFT          string `json:"swift,omitempty"`
	Currency       string `json:"currency,omitempty"`
	VariableSymbol string `json:"variableSymbol,omitempty"`
	ConstantSymbol string `json:"constantSymbol,omitempty"`
	SpecificSymbol string `json:"specificSymbol,omitempty"`
	RecipientName  string `json:"recipientName,omitempty"`
	Info           string `json:"info,omitempty"`
}

// FromPayment copies an invoice's payment details
func FromPayment(p types.PaymentDetails) Fields {
	return Fields{
		IBAN:           p.IBAN,
		SWIFT:          p.SWIFT,
		Currency:       p.Currency,
		VariableSymbol: p.VariableSymbol,
		ConstantSymbol: p.ConstantSymbol,
		SpecificSymbol: p.SpecificSymbol,
		RecipientName:  p.RecipientName,
	}
}

// Payloads holds both encodings. An empty string means that payload could not be built.
type Payloads struct {
	SPD string `json:"spd"`
	EPC string `json:"epc"`
}

// SPD builds the domestic short payment descriptor
//
//	SPD*1.0*ACC:<iban>[+<swift>]*CC:<ccy>*X-VS:<vs>[*X-KS:<ks>][*X-SS:<ss>]
func SPD(f Fields) (string, error) {
	iban, err := NormalizeIBAN(f.IBAN)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SPD*1.0*ACC:")
	b.WriteString(iban)
	if swift := compact(f.SWIFT); swift != "" {
		b.WriteString("+")
		b.WriteString(swift)
	}
	b.WriteString("*CC:")
	b.WriteString(currency(f.Currency))
	b.WriteString("*X-VS:")
	b.WriteString(strings.TrimSpace(f.VariableSymbol))
	if ks := strings.TrimSpace(f.ConstantSymbol); ks != "" {
		b.WriteString("*X-KS:")
		b.WriteString(ks)
	}
	if ss := strings.TrimSpace(f.SpecificSymbol); ss != "" {
		b.WriteString("*X-SS:")
		b.WriteString(ss)
	}
	return b.String(), nil
}

// EPC builds the 12-line EU credit transfer payload. A nil amount leaves the amount
// line empty; the amount is injected when the document is generated.
func EPC(f Fields, amount *types.Cents) (string, error) {
	iban, err := NormalizeIBAN(f.IBAN)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(f.RecipientName)
	if name == "" {
		return "", ErrMissingName
	}

	amountLine := ""
	if amount != nil {
		if *amount <= 0 || *amount > maxEPCAmount {
			return "", fmt.Errorf("amount %s out of range", amount.String())
		}
		amountLine = currency(f.Currency) + amount.String()
	}

	var symbols []string
	for _, s := range []string{f.VariableSymbol, f.ConstantSymbol, f.SpecificSymbol} {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	lines := []string{
		"BCD",
		"002",
		"1",
		"SCT",
		compact(f.SWIFT),
		truncateRunes(name, maxNameRunes),
		iban,
		amountLine,
		"", // purpose
		"", // structured remittance
		strings.Join(symbols, "/"),
		truncateRunes(strings.TrimSpace(f.Info), maxInfoRunes),
	}
	return strings.Join(lines, "\n"), nil
}

// Preview builds both payloads without an amount. Each falls back to "" on its own error.
func Preview(f Fields) Payloads {
	var p Payloads
	if spd, err := SPD(f); err == nil {
		p.SPD = spd
	}
	if epc, err := EPC(f, nil); err == nil {
		p.EPC = epc
	}
	return p
}

// ForInvoice builds both payloads with the invoice total injected into the EPC amount
func ForInvoice(inv types.Invoice) Payloads {
	f := FromPayment(inv.Payment)
	f.Info = inv.Number
	var p Payloads
	if spd, err := SPD(f); err == nil {
		p.SPD = spd
	}
	total := inv.Totals.Total
	if epc, err := EPC(f, &total); err == nil {
		p.EPC = epc
	}
	return p
}

// NormalizeIBAN strips spaces, upper-cases and verifies the mod-97 checksum
func NormalizeIBAN(raw string) (string, error) {
	iban := strings.ToUpper(compact(raw))
	if iban == "" {
		return "", ErrMissingIBAN
	}
	if len(iban) < 15 || len(iban) > 34 {
		return "", fmt.Errorf("iban %q has invalid length", iban)
	}

	// move country code and check digits to the end, letters become 10..35
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			rem = (rem*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			rem = (rem*100 + int(r-'A') + 10) % 97
		default:
			return "", fmt.Errorf("iban %q contains invalid character %q", iban, r)
		}
	}
	if rem != 1 {
		return "", ErrInvalidIBAN
	}
	return iban, nil
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func currency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency
	}
	return c
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
