package notification

import (
	"context"

	"parkly/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

var titles = map[string]string{
	"booking_created":   "Booking requested",
	"booking_accepted":  "Booking accepted",
	"booking_rejected":  "Booking rejected",
	"booking_cancelled": "Booking cancelled",
	"driver_arrived":    "Driver arrived",
	"booking_completed": "Booking completed",
	"overtime_charged":  "Overtime charged",
	"booking_abandoned": "Booking abandoned",
}

// FCMSink delivers pushes through Firebase Cloud Messaging.
type FCMSink struct {
	Tokens TokenSource
	Logger *zap.Logger
}

// NewFCMSink builds the production sink.
func NewFCMSink(tokens TokenSource, logger *zap.Logger) *FCMSink {
	return &FCMSink{Tokens: tokens, Logger: logger}
}

// Notify sends one push. Errors are logged, never returned: notification
// delivery must not affect booking state.
func (s *FCMSink) Notify(ctx context.Context, recipientID, kind string, payload map[string]string) {
	token, err := s.Tokens.PushToken(ctx, recipientID)
	if err != nil || token == "" {
		s.Logger.Warn("no push token for recipient",
			zap.String("recipient", recipientID), zap.Error(err))
		return
	}

	title, ok := titles[kind]
	if !ok {
		title = "Parkly update"
	}
	if payload == nil {
		payload = map[string]string{}
	}
	payload["kind"] = kind

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  payload["body"],
		},
		Data: payload,
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		s.Logger.Warn("failed to send push",
			zap.String("recipient", recipientID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// LogSink is the development sink: it only logs.
type LogSink struct {
	Logger *zap.Logger
}

func (s *LogSink) Notify(ctx context.Context, recipientID, kind string, payload map[string]string) {
	s.Logger.Info("notification",
		zap.String("recipient", recipientID),
		zap.String("kind", kind),
		zap.Any("payload", payload))
}
