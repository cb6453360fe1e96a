package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
	"github.com/raids-lab/ptms/pkg/mailer"
	"github.com/raids-lab/ptms/pkg/metrics"
)

// Notifier persists notifications and hands them to the email transport, either
// immediately or through the digest flush.
type Notifier struct {
	db            *gorm.DB
	transport     mailer.Transport
	defaultLocale string
	now           func() time.Time
}

func NewNotifier(db *gorm.DB, transport mailer.Transport, defaultLocale string) *Notifier {
	if defaultLocale == "" {
		defaultLocale = LocaleID
	}
	return &Notifier{
		db:            db,
		transport:     transport,
		defaultLocale: defaultLocale,
		now:           time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

func (n *Notifier) localeOf(u *model.User) string {
	if u.Locale == LocaleEN || u.Locale == LocaleID {
		return u.Locale
	}
	return n.defaultLocale
}

func templateVars(u *model.User, payload map[string]string) map[string]string {
	vars := make(map[string]string, len(payload)+1)
	vars["name"] = u.DisplayName()
	for k, v := range payload {
		vars[k] = v
	}
	return vars
}

// Notify records a notification for userID. Batched types stay PENDING until
// SendQueued runs; the others are sent before Notify returns. The returned error
// only reports that the caller's side effect did not fully happen and is never
// meant to fail the caller's own operation.
func (n *Notifier) Notify(ctx context.Context, userID uint, t model.NotificationType, data map[string]any) (*model.Notification, error) {
	var user model.User
	if err := n.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.NotFound("user %d not found", userID)
		}
		return nil, err
	}

	notification := &model.Notification{
		UserID:      userID,
		Type:        t,
		Payload:     datatypes.JSONMap(data),
		Channel:     model.NotificationChannelEmail,
		Status:      model.NotificationStatusPending,
		EmailQueued: t.IsBatched(),
	}
	if err := n.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	if notification.EmailQueued {
		return notification, nil
	}

	subject, body := Render(t, n.localeOf(&user), templateVars(&user, notification.PayloadStrings()))
	sendErr := n.deliver(ctx, &user, subject, body)
	if err := n.markDelivered(ctx, []uint{notification.ID}, nil, sendErr); err != nil {
		return notification, err
	}
	metrics.NotificationsSent.WithLabelValues(string(t), string(statusOf(sendErr))).Inc()
	if sendErr != nil {
		notification.Status = model.NotificationStatusFailed
		notification.Error = sendErr.Error()
		return notification, sendErr
	}
	notification.Status = model.NotificationStatusSent
	return notification, nil
}

func (n *Notifier) deliver(ctx context.Context, u *model.User, subject, body string) error {
	if u.Email == "" {
		return fmt.Errorf("user %s has no email address", u.Name)
	}
	return n.transport.Send(ctx, u.Email, subject, body)
}

func statusOf(err error) model.NotificationStatus {
	if err != nil {
		return model.NotificationStatusFailed
	}
	return model.NotificationStatusSent
}

func (n *Notifier) markDelivered(ctx context.Context, ids []uint, batchID *string, sendErr error) error {
	updates := map[string]any{"status": statusOf(sendErr)}
	if batchID != nil {
		updates["batch_id"] = *batchID
	}
	if sendErr != nil {
		updates["error"] = sendErr.Error()
	} else {
		updates["sent_at"] = n.now()
	}
	return n.db.WithContext(ctx).Model(&model.Notification{}).Where("id IN ?", ids).Updates(updates).Error
}

// SendResult summarizes one digest flush.
type SendResult struct {
	Emails        int `json:"emails"`
	Notifications int `json:"notifications"`
	Failed        int `json:"failed"`
}

// SendQueued flushes every PENDING queued notification of active coordinators.
// Notifications of one coordinator sharing a group key go out as a single email;
// groups with more than one item share a batch id. Failed rows are not retried.
func (n *Notifier) SendQueued(ctx context.Context) (SendResult, error) {
	var result SendResult
	var coordinators []model.User
	if err := n.db.WithContext(ctx).
		Where("role = ? AND status = ?", model.RoleCoordinator, model.StatusActive).
		Order("id").Find(&coordinators).Error; err != nil {
		return result, err
	}

	for i := range coordinators {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := n.sendQueuedFor(ctx, &coordinators[i], &result); err != nil {
			klog.Errorf("send queued notifications to %s: %v", coordinators[i].Name, err)
		}
	}
	return result, nil
}

func (n *Notifier) sendQueuedFor(ctx context.Context, coordinator *model.User, result *SendResult) error {
	var pending []*model.Notification
	if err := n.db.WithContext(ctx).
		Where("user_id = ? AND email_queued = ? AND status = ?", coordinator.ID, true, model.NotificationStatusPending).
		Order("created_at, id").Find(&pending).Error; err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	locale := n.localeOf(coordinator)
	groups := lo.GroupBy(pending, func(item *model.Notification) string { return groupKey(item.Type) })
	keys := lo.Keys(groups)
	sort.Strings(keys)

	for _, key := range keys {
		items := groups[key]
		var (
			subject, body string
			batchID       *string
		)
		if len(items) == 1 {
			subject, body = Render(items[0].Type, locale, templateVars(coordinator, items[0].PayloadStrings()))
		} else {
			lines := lo.Map(items, func(item *model.Notification, _ int) string {
				return RenderItem(item.Type, locale, templateVars(coordinator, item.PayloadStrings()))
			})
			vars := map[string]string{"name": coordinator.DisplayName(), "count": strconv.Itoa(len(items))}
			subject, body = RenderDigest(digestGroup(key), locale, vars, lines)
			batchID = lo.ToPtr(uuid.NewString())
		}

		sendErr := n.deliver(ctx, coordinator, subject, body)
		ids := lo.Map(items, func(item *model.Notification, _ int) uint { return item.ID })
		if err := n.markDelivered(ctx, ids, batchID, sendErr); err != nil {
			return err
		}

		result.Emails++
		result.Notifications += len(items)
		if sendErr != nil {
			result.Failed += len(items)
			klog.Warningf("deliver %s to %s: %v", key, coordinator.Name, sendErr)
		}
		if batchID != nil && sendErr == nil {
			metrics.DigestsSent.Inc()
		}
		for _, item := range items {
			metrics.NotificationsSent.WithLabelValues(string(item.Type), string(statusOf(sendErr))).Inc()
		}
	}
	return nil
}

func digestGroup(key string) string {
	if key == groupSubmissions || key == groupEscalations {
		return key
	}
	return ""
}

// List returns the newest notifications of userID.
func (n *Notifier) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := n.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []*model.Notification
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// MarkRead marks one notification of userID as read.
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uint) error {
	res := n.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]any{"status": model.NotificationStatusRead, "read_at": n.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return bizerr.NotFound("notification %d not found", notificationID)
	}
	return nil
}

// MarkAllRead marks every unread notification of userID as read and returns how many changed.
func (n *Notifier) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := n.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]any{"status": model.NotificationStatusRead, "read_at": n.now()})
	return res.RowsAffected, res.Error
}
