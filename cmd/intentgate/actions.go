package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/central73/intentgate/internal/service"
)

// Demo actions exercising every governance layer: stripe_refund and
// cancel_subscription are governed by constitution conditions, send_email
// is low-risk, and process_chargeback requires a human confirmation.

func demoActions() []service.Action {
	return []service.Action{
		{
			Name: "stripe_refund",
			Run: func(_ context.Context, args map[string]any) (any, error) {
				customerID := argString(args, "customer_id")
				amount := argFloat(args, "amount")
				slog.Info("stripe_refund executed", "customer", customerID, "amount", amount)
				return fmt.Sprintf("Refund of $%.2f processed for customer %s. Stripe transaction ID: txn_sim_%s_%d",
					amount, customerID, last4(customerID), int(amount*100)), nil
			},
		},
		{
			Name: "send_email",
			Run: func(_ context.Context, args map[string]any) (any, error) {
				to := argString(args, "to")
				subject := argString(args, "subject")
				slog.Info("send_email executed", "to", to, "subject", subject)
				return fmt.Sprintf("Email sent to %s (subject: %q)", to, subject), nil
			},
		},
		{
			Name: "cancel_subscription",
			Run: func(_ context.Context, args map[string]any) (any, error) {
				customerID := argString(args, "customer_id")
				slog.Info("cancel_subscription executed", "customer", customerID)
				return fmt.Sprintf("Subscription cancelled for customer %s.", customerID), nil
			},
		},
		{
			Name:                 "process_chargeback",
			RequiresConfirmation: true,
			Run: func(_ context.Context, args map[string]any) (any, error) {
				customerID := argString(args, "customer_id")
				amount := argFloat(args, "amount")
				slog.Info("process_chargeback executed", "customer", customerID, "amount", amount)
				return fmt.Sprintf("Chargeback of $%.2f processed for customer %s. This action is irreversible.",
					amount, customerID), nil
			},
		},
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
