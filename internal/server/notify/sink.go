// Package notify delivers "your file was downloaded" notifications.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Sink delivers one notification. Callers treat failures as non-fatal.
type Sink interface {
	Notify(ctx context.Context, email, fileRef string, downloadCount int64) error
}

const (
	DefaultFrom    = "noreply@webfiletransfer.local"
	DefaultChannel = "webxfer:notifications"

	subject = "File Download Notification"
)

// Body renders the notification text.
func Body(downloadCount int64) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "Your file has been downloaded %d time(s).\n\n", downloadCount)
	b.WriteString("This is an automated notification from Web File Transfer.\n\n")
	b.WriteString("Best regards,\nWeb File Transfer System")
	return b.String()
}
