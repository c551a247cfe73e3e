// Package notify delivers user-visible notifications about recording
// outcomes (permission problems, saved or failed routes).
package notify

import (
	"context"

	"go.uber.org/zap"

	"trailtrack/internal/types"
)

type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindRouteSaved       Kind = "route_saved"
	KindSaveFailed       Kind = "save_failed"
)

type Notification struct {
	Kind  Kind
	Title string
	Body  string
	Data  map[string]string
}

func PermissionDenied() Notification {
	return Notification{
		Kind:  KindPermissionDenied,
		Title: "Permission denied",
		Body:  "Location access is required to record a route.",
	}
}

func RouteSaved(name string) Notification {
	return Notification{
		Kind:  KindRouteSaved,
		Title: "Success",
		Body:  "Route saved",
		Data:  map[string]string{"route_name": name},
	}
}

func SaveFailed(name string) Notification {
	return Notification{
		Kind:  KindSaveFailed,
		Title: "Error",
		Body:  "Failed to save",
		Data:  map[string]string{"route_name": name},
	}
}

// LogNotifier writes notifications to the log. Used when push messaging is
// not configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, owner types.ID, msg Notification) error {
	n.log.Info("notification",
		zap.String("owner", string(owner)),
		zap.String("kind", string(msg.Kind)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}
