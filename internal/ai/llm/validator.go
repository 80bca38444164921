package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/signals"
)

const validatorSystemPrompt = "You are a senior trading analyst. Your task is to give a critical, actionable second opinion on the trade signal provided."

// Validator produces a narrative second opinion for a generated signal.
type Validator struct {
	client *Client
	logger zerolog.Logger
}

func NewValidator(client *Client, logger zerolog.Logger) *Validator {
	return &Validator{
		client: client,
		logger: logger.With().Str("component", "signal_validator").Logger(),
	}
}

// Enabled reports whether validation is available.
func (v *Validator) Enabled() bool {
	return v.client != nil && v.client.IsConfigured()
}

// ValidateSignal asks the model for a structured critique of the signal.
func (v *Validator) ValidateSignal(ctx context.Context, sig signals.ActiveSignal) (string, error) {
	if !v.Enabled() {
		return "", fmt.Errorf("signal validation is not configured")
	}

	prompt := buildValidationPrompt(sig)
	v.logger.Debug().Str("symbol", sig.ID).Msg("requesting signal validation")

	analysis, err := v.client.Complete(ctx, validatorSystemPrompt, prompt)
	if err != nil {
		v.logger.Warn().Err(err).Str("symbol", sig.ID).Msg("signal validation failed")
		return "", fmt.Errorf("validating %s: %w", sig.ID, err)
	}
	return analysis, nil
}

func buildValidationPrompt(sig signals.ActiveSignal) string {
	tps := make([]string, len(sig.TakeProfits))
	for i, tp := range sig.TakeProfits {
		tps[i] = promptPrice(tp)
	}

	var b strings.Builder
	b.WriteString("Signal data:\n")
	fmt.Fprintf(&b, "- Asset: %s/%s (%s)\n", sig.Symbol, sig.Pair, sig.Direction)
	fmt.Fprintf(&b, "- Current price: %s\n", promptPrice(sig.Price))
	fmt.Fprintf(&b, "- Primary analysis: %q\n", string(sig.Confidence)+". "+sig.RiskNotes)
	fmt.Fprintf(&b, "- Entry zone: %s - %s\n", promptPrice(sig.EntryZone[0]), promptPrice(sig.EntryZone[1]))
	fmt.Fprintf(&b, "- Targets: %s\n", strings.Join(tps, ", "))
	fmt.Fprintf(&b, "- Stop loss: %s\n", promptPrice(sig.StopLoss))
	fmt.Fprintf(&b, "- Suggested leverage: %dx\n", sig.SafeLeverage)
	fmt.Fprintf(&b, "- Volume (24h): $%.0f\n", sig.QuoteVolume)
	b.WriteString("\nRequired format:\n")
	b.WriteString("1. Analysis summary: one concise paragraph (2-3 lines) on overall signal quality (risk/reward, volume, premise).\n")
	b.WriteString("2. Strategic recommendations: on a new line starting with \"Strategic recommendations:\", compare current price against the entry zone and stop loss, then give exactly ONE of: a DCA plan with 2-3 partial entries at exact prices, a stop adjustment with an exact new value, or keep the original plan.\n")
	b.WriteString("3. Confidence score: on a new line starting with \"Confidence score:\", a score from 0.0 to 10.0 for the plan (original or adjusted).\n")
	return b.String()
}

// promptPrice formats a price for the prompt, keeping precision readable
// across magnitudes.
func promptPrice(v float64) string {
	switch {
	case v == 0:
		return "0"
	case v < 0.0001:
		return strconv.FormatFloat(v, 'g', 4, 64)
	case v < 1:
		return strconv.FormatFloat(v, 'f', 6, 64)
	case v < 1000:
		return strconv.FormatFloat(v, 'f', 4, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}
