package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dennisdiepolder/monti/agentdesk/internal/qrpay"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func newQRCmd(app *App) *cobra.Command {
	var (
		f       qrpay.Fields
		amount  string
		pngPath string
		format  string
		size    int
	)

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Build SPD and EPC payment QR payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out qrpay.Payloads
			if amount == "" {
				out = qrpay.Preview(f)
			} else {
				cents, err := types.ParseCents(amount)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("invalid --amount: %w", err))
				}
				out = qrpay.Preview(f)
				epc, err := qrpay.EPC(f, &cents)
				if err != nil {
					app.logger.Warn().Err(err).Msg("epc payload not built")
				}
				out.EPC = epc
			}

			if pngPath != "" {
				payload := out.SPD
				if format == "epc" {
					payload = out.EPC
				}
				if payload == "" {
					return writeErr(cmd, fmt.Errorf("no %s payload to render", format))
				}
				png, err := qrpay.Rasterize(payload, size)
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := os.WriteFile(pngPath, png, 0o644); err != nil {
					return writeErr(cmd, err)
				}
				app.logger.Info().Str("file", pngPath).Int("bytes", len(png)).Msg("qr written")
			}

			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&f.IBAN, "iban", "", "Recipient IBAN")
	cmd.Flags().StringVar(&f.SWIFT, "swift", "", "Recipient BIC")
	cmd.Flags().StringVar(&f.Currency, "currency", "EUR", "Currency code")
	cmd.Flags().StringVar(&f.VariableSymbol, "vs", "", "Variable symbol")
	cmd.Flags().StringVar(&f.ConstantSymbol, "ks", "", "Constant symbol")
	cmd.Flags().StringVar(&f.SpecificSymbol, "ss", "", "Specific symbol")
	cmd.Flags().StringVar(&f.RecipientName, "name", "", "Recipient name (required for EPC)")
	cmd.Flags().StringVar(&f.Info, "info", "", "Remittance information")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 83.34 (EPC only)")
	cmd.Flags().StringVar(&pngPath, "png", "", "Write the QR image to this file")
	cmd.Flags().StringVar(&format, "format", "spd", "Payload rendered to --png (spd|epc)")
	cmd.Flags().IntVar(&size, "size", qrpay.DefaultSize, "PNG edge in pixels")
	_ = cmd.MarkFlagRequired("iban")

	return cmd
}
