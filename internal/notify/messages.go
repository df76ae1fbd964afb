package notify

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func ActivationMessage(email, baseURL, token string) Message {
	return Message{
		Subject:   "Activate your account",
		Recipient: email,
		Body:      fmt.Sprintf("Click to activate: %s/api/v1/auth/activate/%s", baseURL, token),
	}
}

func PasswordResetMessage(email, baseURL, token string) Message {
	return Message{
		Subject:   "Password Reset",
		Recipient: email,
		Body:      fmt.Sprintf("Click to reset: %s/api/v1/auth/password/reset/%s", baseURL, token),
	}
}

func PaymentConfirmedMessage(email, orderID string, amount decimal.Decimal, currency string) Message {
	return Message{
		Subject:   "Payment confirmed",
		Recipient: email,
		Body: fmt.Sprintf("Your payment of %s %s for order %s was received. Enjoy your movies!",
			amount.StringFixed(2), currency, orderID),
	}
}

func PaymentRefundedMessage(email, orderID string, amount decimal.Decimal, currency string) Message {
	return Message{
		Subject:   "Payment refunded",
		Recipient: email,
		Body: fmt.Sprintf("Your payment of %s %s for order %s has been refunded.",
			amount.StringFixed(2), currency, orderID),
	}
}
