package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/allocation"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	"github.com/fieldworks/wellbill/internal/config"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	"github.com/fieldworks/wellbill/internal/observability/metrics"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	usagedomain "github.com/fieldworks/wellbill/internal/usage/domain"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
	"github.com/fieldworks/wellbill/pkg/db"
	"github.com/fieldworks/wellbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const txTimeout = 30 * time.Second

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	billingCfg *config.BillingConfigHolder
	usage      usagedomain.Aggregator
	ledger     distributiondomain.Ledger
	metrics    *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	BillingCfg *config.BillingConfigHolder
	Usage      usagedomain.Aggregator
	Ledger     distributiondomain.Ledger
	Metrics    *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billingperiod.service"),
		genID:      p.GenID,
		billingCfg: p.BillingCfg,
		usage:      p.Usage,
		ledger:     p.Ledger,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req billingdomain.CreateRequest) (*billingdomain.BillingPeriod, error) {
	wellID, err := snowflake.ParseString(req.WellID)
	if err != nil {
		return nil, billingdomain.ErrInvalidPeriod
	}
	issuerID, err := snowflake.ParseString(req.IssuerID)
	if err != nil {
		return nil, billingdomain.ErrInvalidPeriod
	}
	if req.TotalAmount <= 0 || !req.EndDate.After(req.StartDate) {
		return nil, billingdomain.ErrInvalidPeriod
	}

	var well welldomain.Well
	if err := s.db.WithContext(ctx).First(&well, "id = ?", wellID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, billingdomain.ErrWellNotFound
		}
		return nil, err
	}
	var issuer ownerdomain.Owner
	if err := s.db.WithContext(ctx).First(&issuer, "id = ?", issuerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, billingdomain.ErrIssuerNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	period := billingdomain.BillingPeriod{
		ID:            s.genID.Generate(),
		WellID:        wellID,
		IssuerID:      issuerID,
		StartDate:     req.StartDate.UTC(),
		EndDate:       req.EndDate.UTC(),
		TotalAmount:   req.TotalAmount,
		Currency:      s.billingCfg.Get().Currency,
		Status:        billingdomain.BillingPeriodStatusPending,
		InvoiceNumber: req.InvoiceNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&period).Error; err != nil {
		return nil, err
	}

	s.log.Info("billing period created",
		zap.String("period_id", period.ID.String()),
		zap.String("well_id", wellID.String()),
		zap.Int64("total_amount", period.TotalAmount))
	return &period, nil
}

func (s *Service) Get(ctx context.Context, id string) (*billingdomain.PeriodDetail, error) {
	period, err := s.findPeriod(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.ledger.ListForPeriod(ctx, period.ID)
	if err != nil {
		return nil, err
	}

	detail := billingdomain.PeriodDetail{BillingPeriod: *period}
	if len(rows) == 0 {
		return &detail, nil
	}

	ownerNames, fieldNames, err := s.lookupNames(ctx, rows)
	if err != nil {
		return nil, err
	}
	detail.Distributions = make([]billingdomain.DistributionRow, 0, len(rows))
	for _, row := range rows {
		detail.Distributions = append(detail.Distributions, billingdomain.DistributionRow{
			Distribution: row,
			OwnerName:    ownerNames[row.OwnerID],
			FieldName:    fieldNames[row.FieldID],
		})
	}
	return &detail, nil
}

func (s *Service) List(ctx context.Context, req billingdomain.ListRequest) (billingdomain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	query := s.db.WithContext(ctx).Model(&billingdomain.BillingPeriod{})
	if req.WellID != "" {
		wellID, err := snowflake.ParseString(req.WellID)
		if err != nil {
			return billingdomain.ListResponse{}, billingdomain.ErrInvalidPeriod
		}
		query = query.Where("well_id = ?", wellID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.From != nil {
		query = query.Where("start_date >= ?", req.From.UTC())
	}
	if req.To != nil {
		query = query.Where("end_date <= ?", req.To.UTC())
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return billingdomain.ListResponse{}, billingdomain.ErrInvalidPeriod
		}
		query = query.Where("id < ?", cursor.ID)
	}

	var periods []*billingdomain.BillingPeriod
	if err := query.Order("id DESC").Limit(limit + 1).Find(&periods).Error; err != nil {
		return billingdomain.ListResponse{}, err
	}

	pageInfo, periods := pagination.BuildCursorPageInfo(periods, limit, func(p *billingdomain.BillingPeriod) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: p.ID.String()})
		return token
	})

	resp := billingdomain.ListResponse{PageInfo: *pageInfo}
	resp.Periods = make([]billingdomain.BillingPeriod, 0, len(periods))
	for _, p := range periods {
		resp.Periods = append(resp.Periods, *p)
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := s.findPeriod(ctx, tx, id)
		if err != nil {
			return err
		}
		if period.Status == billingdomain.BillingPeriodStatusPaid {
			return billingdomain.ErrPeriodSettled
		}
		if err := s.ledger.Clear(ctx, tx, period.ID); err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&billingdomain.BillingPeriod{}, "id = ?", period.ID).Error
	})
}

// Calculate reconstructs the period's usage, allocates the billed total and
// writes the distribution ledger in one transaction. A period with existing
// distributions must be cleared first; recalculation never silently
// overwrites.
func (s *Service) Calculate(ctx context.Context, id string) ([]distributiondomain.Distribution, error) {
	rows, err := s.calculate(ctx, id)
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
			if err == billingdomain.ErrAlreadyCalculated {
				outcome = "conflict"
			}
		}
		s.metrics.RecordCalculation(outcome)
	}
	return rows, err
}

func (s *Service) calculate(ctx context.Context, id string) ([]distributiondomain.Distribution, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	period, err := s.findPeriod(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if period.Status == billingdomain.BillingPeriodStatusPaid {
		return nil, billingdomain.ErrPeriodSettled
	}
	if count, err := s.ledger.CountForPeriod(ctx, period.ID); err != nil {
		return nil, err
	} else if count > 0 {
		return nil, billingdomain.ErrAlreadyCalculated
	}

	usage, err := s.usage.AggregateUsage(ctx, period.WellID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}

	basis := make([]allocation.Basis, 0, len(usage.Owners))
	for _, owner := range usage.Owners {
		for _, field := range owner.Fields {
			basis = append(basis, allocation.Basis{
				OwnerID: owner.OwnerID,
				FieldID: field.FieldID,
				Minutes: field.Minutes,
			})
		}
	}
	shares, err := allocation.Split(basis, period.TotalAmount)
	if err != nil {
		return nil, err
	}

	var written []distributiondomain.Distribution
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&distributiondomain.Distribution{}).
			Where("well_billing_period_id = ?", period.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return billingdomain.ErrAlreadyCalculated
		}

		written, err = s.ledger.Write(ctx, tx, distributiondomain.WriteInput{
			PeriodID:    period.ID,
			IssuerID:    period.IssuerID,
			TotalAmount: period.TotalAmount,
			Currency:    period.Currency,
			PeriodStart: period.StartDate,
			PeriodEnd:   period.EndDate,
			Shares:      shares,
		})
		if err != nil {
			return err
		}

		result := tx.WithContext(ctx).Model(&billingdomain.BillingPeriod{}).
			Where("id = ? AND status = ?", period.ID, billingdomain.BillingPeriodStatusPending).
			Updates(map[string]any{
				"total_usage_minutes": usage.TotalMinutes,
				"updated_at":          time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return billingdomain.ErrPeriodSettled
		}
		return nil
	})
	if err != nil {
		// Two writers racing past the count both reach the ledger write;
		// the loser trips the unique (period, owner, field) index.
		if db.IsDuplicateKeyErr(err) {
			return nil, billingdomain.ErrAlreadyCalculated
		}
		return nil, err
	}

	s.log.Info("billing period calculated",
		zap.String("period_id", period.ID.String()),
		zap.Float64("total_minutes", usage.TotalMinutes),
		zap.Int("distributions", len(written)))
	return written, nil
}

func (s *Service) ClearDistributions(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := s.findPeriod(ctx, tx, id)
		if err != nil {
			return err
		}
		if period.Status == billingdomain.BillingPeriodStatusPaid {
			return billingdomain.ErrPeriodSettled
		}
		return s.ledger.Clear(ctx, tx, period.ID)
	})
}

func (s *Service) findPeriod(ctx context.Context, db *gorm.DB, id string) (*billingdomain.BillingPeriod, error) {
	periodID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, billingdomain.ErrPeriodNotFound
	}
	var period billingdomain.BillingPeriod
	if err := db.WithContext(ctx).First(&period, "id = ?", periodID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, billingdomain.ErrPeriodNotFound
		}
		return nil, err
	}
	return &period, nil
}

func (s *Service) lookupNames(ctx context.Context, rows []distributiondomain.Distribution) (map[snowflake.ID]string, map[snowflake.ID]string, error) {
	ownerIDs := make([]snowflake.ID, 0, len(rows))
	fieldIDs := make([]snowflake.ID, 0, len(rows))
	seenOwners := make(map[snowflake.ID]struct{})
	seenFields := make(map[snowflake.ID]struct{})
	for _, row := range rows {
		if _, ok := seenOwners[row.OwnerID]; !ok {
			seenOwners[row.OwnerID] = struct{}{}
			ownerIDs = append(ownerIDs, row.OwnerID)
		}
		if _, ok := seenFields[row.FieldID]; !ok {
			seenFields[row.FieldID] = struct{}{}
			fieldIDs = append(fieldIDs, row.FieldID)
		}
	}

	var owners []ownerdomain.Owner
	if err := s.db.WithContext(ctx).Where("id IN ?", ownerIDs).Find(&owners).Error; err != nil {
		return nil, nil, err
	}
	var fields []fielddomain.Field
	if err := s.db.WithContext(ctx).Where("id IN ?", fieldIDs).Find(&fields).Error; err != nil {
		return nil, nil, err
	}

	ownerNames := make(map[snowflake.ID]string, len(owners))
	for _, o := range owners {
		ownerNames[o.ID] = o.Name
	}
	fieldNames := make(map[snowflake.ID]string, len(fields))
	for _, f := range fields {
		fieldNames[f.ID] = f.Name
	}
	return ownerNames, fieldNames, nil
}
