package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/envutil"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/mailer"
	"github.com/tracebind/passport-backend/internal/realtime"
)

// Notifier pushes workflow and connection transitions to the parties' SSE
// channels and sends the invitation email. Every method is post-commit,
// fire-and-forget: a nil emitter or mail client downgrades the call to a
// no-op, never an error the caller has to handle.
type Notifier interface {
	ConnectionInvited(ctx context.Context, conn *types.TenantConnection, profileName string)
	ConnectionResponded(ctx context.Context, conn *types.TenantConnection, accepted bool)
	ConnectionDisconnected(ctx context.Context, conn *types.TenantConnection)

	RequestAssigned(ctx context.Context, req *types.DataContributionRequest)
	RequestStarted(ctx context.Context, req *types.DataContributionRequest)
	RequestSubmitted(ctx context.Context, req *types.DataContributionRequest)
	RequestApproved(ctx context.Context, req *types.DataContributionRequest)
	RequestRejected(ctx context.Context, req *types.DataContributionRequest, reason string)
	RequestDeclined(ctx context.Context, req *types.DataContributionRequest)
	RequestCancelled(ctx context.Context, req *types.DataContributionRequest)

	CommentAdded(ctx context.Context, req *types.DataContributionRequest, comment *types.CollaborationComment)

	PassportPublished(ctx context.Context, tenantID uuid.UUID, pp *types.ProductPassport)
	PassportArchived(ctx context.Context, tenantID uuid.UUID, pp *types.ProductPassport)

	// SendInvitationEmail mails the single-use accept link to a bare-email
	// invitee. Returns an error so the effect dispatcher can count failures.
	SendInvitationEmail(ctx context.Context, in InvitationEmail) error
}

// InvitationEmail carries everything the invite mail template needs.
type InvitationEmail struct {
	ToEmail   string
	BrandName string
	Note      string
	Token     string
}

type notifier struct {
	log       *logger.Logger
	emit      SSEEmitter
	mail      mailer.Client
	baseURL   string
	fromEmail string
	fromName  string
}

func NewNotifier(baseLog *logger.Logger, emit SSEEmitter, mail mailer.Client) Notifier {
	return &notifier{
		log:       baseLog.With("service", "Notifier"),
		emit:      emit,
		mail:      mail,
		baseURL:   envutil.String("APP_BASE_URL", "http://localhost:3000"),
		fromEmail: envutil.String("MAIL_FROM_EMAIL", "no-reply@tracebind.dev"),
		fromName:  envutil.String("MAIL_FROM_NAME", "Tracebind"),
	}
}

// fanout sends one event to every distinct tenant channel in ids, skipping
// nils so callers can pass unresolved counterparties directly.
func (n *notifier) fanout(ctx context.Context, event realtime.SSEEvent, data map[string]any, ids ...*uuid.UUID) {
	if n == nil || n.emit == nil {
		return
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if id == nil || *id == uuid.Nil || seen[*id] {
			continue
		}
		seen[*id] = true
		n.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.TenantChannel(*id),
			Event:   event,
			Data:    data,
		})
	}
}

func (n *notifier) ConnectionInvited(ctx context.Context, conn *types.TenantConnection, profileName string) {
	if n == nil || conn == nil {
		return
	}
	n.fanout(ctx, realtime.SSEEventConnectionInvited, map[string]any{
		"connection_id": conn.ID,
		"status":        conn.Status,
		"profile_name":  profileName,
	}, &conn.RequesterTenantID, conn.SupplierTenantID)
}

func (n *notifier) ConnectionResponded(ctx context.Context, conn *types.TenantConnection, accepted bool) {
	if n == nil || conn == nil {
		return
	}
	event := realtime.SSEEventConnectionAccepted
	if !accepted {
		event = realtime.SSEEventConnectionRejected
	}
	n.fanout(ctx, event, map[string]any{
		"connection_id": conn.ID,
		"status":        conn.Status,
	}, &conn.RequesterTenantID, conn.SupplierTenantID)
}

func (n *notifier) ConnectionDisconnected(ctx context.Context, conn *types.TenantConnection) {
	if n == nil || conn == nil {
		return
	}
	n.fanout(ctx, realtime.SSEEventConnectionDisconnected, map[string]any{
		"connection_id": conn.ID,
		"status":        conn.Status,
	}, &conn.RequesterTenantID, conn.SupplierTenantID)
}

func (n *notifier) requestEvent(ctx context.Context, event realtime.SSEEvent, req *types.DataContributionRequest, extra map[string]any) {
	if n == nil || req == nil {
		return
	}
	data := map[string]any{
		"request_id": req.ID,
		"product_id": req.ProductID,
		"status":     req.Status,
	}
	for k, v := range extra {
		data[k] = v
	}
	n.fanout(ctx, event, data, &req.BrandTenantID, &req.SupplierTenantID)
}

func (n *notifier) RequestAssigned(ctx context.Context, req *types.DataContributionRequest) {
	n.requestEvent(ctx, realtime.SSEEventRequestAssigned, req, nil)
}

func (n *notifier) RequestStarted(ctx context.Context, req *types.DataContributionRequest) {
	n.requestEvent(ctx, realtime.SSEEventRequestStarted, req, nil)
}

func (n *notifier) RequestSubmitted(ctx context.Context, req *types.DataContributionRequest) {
	n.requestEvent(ctx, realtime.SSEEventRequestSubmitted, req, nil)
}

func (n *notifier) RequestApproved(ctx context.Context, req *types.DataContributionRequest) {
	n.requestEvent(ctx, realtime.SSEEventRequestApproved, req, nil)
}

func (n *notifier) RequestRejected(ctx context.Context, req *types.DataContributionRequest, reason string) {
	n.requestEvent(ctx, realtime.SSEEventRequestRejected, req, map[string]any{"reason": reason})
}

func (n *notifier) RequestDeclined(ctx context.Context, req *types.DataContributionRequest) {
	n.requestEvent(ctx, realtime.SSEEventRequestDeclined, req, nil)
}

func (n *notifier) RequestCancelled(ctx context.Context, req *types.DataContributionRequest) {
	n.requestEvent(ctx, realtime.SSEEventRequestCancelled, req, nil)
}

func (n *notifier) CommentAdded(ctx context.Context, req *types.DataContributionRequest, comment *types.CollaborationComment) {
	if n == nil || req == nil || comment == nil {
		return
	}
	n.requestEvent(ctx, realtime.SSEEventCommentAdded, req, map[string]any{
		"comment_id":          comment.ID,
		"author_tenant_id":    comment.AuthorTenantID,
		"is_rejection_reason": comment.IsRejectionReason,
	})
}

func (n *notifier) PassportPublished(ctx context.Context, tenantID uuid.UUID, pp *types.ProductPassport) {
	if n == nil || pp == nil {
		return
	}
	n.fanout(ctx, realtime.SSEEventPassportPublished, map[string]any{
		"passport_id": pp.ID,
		"product_id":  pp.ProductID,
		"public_uid":  pp.PublicUID,
		"status":      pp.Status,
	}, &tenantID)
}

func (n *notifier) PassportArchived(ctx context.Context, tenantID uuid.UUID, pp *types.ProductPassport) {
	if n == nil || pp == nil {
		return
	}
	n.fanout(ctx, realtime.SSEEventPassportArchived, map[string]any{
		"passport_id": pp.ID,
		"product_id":  pp.ProductID,
		"public_uid":  pp.PublicUID,
		"status":      pp.Status,
	}, &tenantID)
}

func (n *notifier) SendInvitationEmail(ctx context.Context, in InvitationEmail) error {
	if n == nil || n.mail == nil {
		return nil
	}
	if in.ToEmail == "" || in.Token == "" {
		return nil
	}

	link := fmt.Sprintf("%s/register?token=%s", n.baseURL, in.Token)
	text := fmt.Sprintf(
		"%s invited you to connect as a supplier.\n\nAccept the invitation: %s\n",
		in.BrandName, link,
	)
	if in.Note != "" {
		text += fmt.Sprintf("\nNote from %s:\n%s\n", in.BrandName, in.Note)
	}
	html := fmt.Sprintf(
		`<p><strong>%s</strong> invited you to connect as a supplier.</p><p><a href="%s">Accept the invitation</a></p>`,
		in.BrandName, link,
	)
	if in.Note != "" {
		html += fmt.Sprintf("<p>Note: %s</p>", in.Note)
	}

	_, err := n.mail.Send(ctx, mailer.SendEmailRequest{
		From:       mailer.EmailAddress{Email: n.fromEmail, Name: n.fromName},
		To:         []mailer.EmailAddress{{Email: in.ToEmail}},
		Subject:    fmt.Sprintf("%s invited you to connect", in.BrandName),
		Text:       text,
		HTML:       html,
		Categories: []string{"supplier-invitation"},
	})
	if err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}
	return nil
}
