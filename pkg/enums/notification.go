package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeBookingCompleted NotificationType = "booking_completed"
	NotificationTypePayoutSent       NotificationType = "payout_sent"
	NotificationTypePayoutPending    NotificationType = "payout_pending"
	NotificationTypeSaleCompleted    NotificationType = "sale_completed"
	NotificationTypeRefundProcessed  NotificationType = "refund_processed"
	NotificationTypePayoutReleased   NotificationType = "payout_released"
	NotificationTypeDepositRefunded  NotificationType = "deposit_refunded"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBookingCompleted,
	NotificationTypePayoutSent,
	NotificationTypePayoutPending,
	NotificationTypeSaleCompleted,
	NotificationTypeRefundProcessed,
	NotificationTypePayoutReleased,
	NotificationTypeDepositRefunded,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
