package qrpay

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func sampleFields() Fields {
	return Fields{
		IBAN:           "SK31 1200 0000 1987 4263 7541",
		SWIFT:          "TATRSKBX",
		Currency:       "eur",
		VariableSymbol: "20260042",
		ConstantSymbol: "0308",
		RecipientName:  "Cells s.r.o.",
	}
}

func TestSPD(t *testing.T) {
	got, err := SPD(sampleFields())
	require.NoError(t, err)
	assert.Equal(t, "SPD*1.0*ACC:SK3112000000198742637541+TATRSKBX*CC:EUR*X-VS:20260042*X-KS:0308", got)

	f := sampleFields()
	f.SWIFT = ""
	f.ConstantSymbol = ""
	f.SpecificSymbol = "77"
	got, err = SPD(f)
	require.NoError(t, err)
	assert.Equal(t, "SPD*1.0*ACC:SK3112000000198742637541*CC:EUR*X-VS:20260042*X-SS:77", got)
}

func TestEPCPreview(t *testing.T) {
	got, err := EPC(sampleFields(), nil)
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, []string{
		"BCD", "002", "1", "SCT",
		"TATRSKBX",
		"Cells s.r.o.",
		"SK3112000000198742637541",
		"",
		"",
		"",
		"20260042/0308",
		"",
	}, lines)
}

func TestEPCWithAmount(t *testing.T) {
	amount := types.Cents(1234)
	got, err := EPC(sampleFields(), &amount)
	require.NoError(t, err)
	assert.Equal(t, "EUR12.34", strings.Split(got, "\n")[7])

	zero := types.Cents(0)
	_, err = EPC(sampleFields(), &zero)
	assert.Error(t, err)
}

func TestEPCTruncatesName(t *testing.T) {
	f := sampleFields()
	f.RecipientName = strings.Repeat("ž", 80)
	got, err := EPC(f, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ž", 70), strings.Split(got, "\n")[5])
}

func TestPreviewFallsBackIndependently(t *testing.T) {
	f := sampleFields()
	f.RecipientName = ""
	p := Preview(f)
	assert.NotEmpty(t, p.SPD)
	assert.Empty(t, p.EPC)

	f = sampleFields()
	f.IBAN = "SK00 1200 0000 1987 4263 7541"
	p = Preview(f)
	assert.Empty(t, p.SPD)
	assert.Empty(t, p.EPC)
}

func TestNormalizeIBAN(t *testing.T) {
	iban, err := NormalizeIBAN("de89 3704 0044 0532 0130 00")
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", iban)

	_, err = NormalizeIBAN("")
	assert.ErrorIs(t, err, ErrMissingIBAN)

	_, err = NormalizeIBAN("DE88370400440532013000")
	assert.ErrorIs(t, err, ErrInvalidIBAN)

	_, err = NormalizeIBAN("DE89-3704")
	assert.Error(t, err)
}

func TestForInvoice(t *testing.T) {
	inv := types.Invoice{
		Number: "FA-2026-0042",
		Totals: types.InvoiceTotals{Total: 8334},
		Payment: types.PaymentDetails{
			IBAN:           "SK3112000000198742637541",
			Currency:       "EUR",
			VariableSymbol: "20260042",
			RecipientName:  "Cells s.r.o.",
		},
	}
	p := ForInvoice(inv)
	lines := strings.Split(p.EPC, "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "EUR83.34", lines[7])
	assert.Equal(t, "FA-2026-0042", lines[11])
	assert.Contains(t, p.SPD, "X-VS:20260042")
}

func TestRasterize(t *testing.T) {
	png, err := Rasterize("SPD*1.0*ACC:SK3112000000198742637541*CC:EUR*X-VS:1", 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = Rasterize("", 128)
	assert.Error(t, err)
}
