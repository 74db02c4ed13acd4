package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/fieldworks/wellbill/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) notificationdomain.Notifier {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
	}
}

// Notify writes the notification row. Failures are logged and swallowed so
// financial writes never roll back over a notification.
func (s *Service) Notify(ctx context.Context, n notificationdomain.Notification) {
	if n.ID == 0 {
		n.ID = s.genID.Generate()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.log.Warn("failed to write notification",
			zap.String("type", string(n.Type)),
			zap.String("receiver_id", n.ReceiverID.String()),
			zap.Error(err))
	}
}
