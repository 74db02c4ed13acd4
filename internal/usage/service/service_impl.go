package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	usagedomain "github.com/fieldworks/wellbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const percentageTolerance = 0.01

type Service struct {
	log        *zap.Logger
	usageSrc   irrigationdomain.UsageSource
	ownerships fielddomain.OwnershipSource
}

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	UsageSrc   irrigationdomain.UsageSource
	Ownerships fielddomain.OwnershipSource
}

func NewService(p ServiceParam) usagedomain.Aggregator {
	return &Service{
		log:        p.Log.Named("usage.aggregator"),
		usageSrc:   p.UsageSrc,
		ownerships: p.Ownerships,
	}
}

// AggregateUsage clips every run touching [from, to) to the window and
// accumulates minutes per (owner, field). A run's minutes are weighted twice:
// by the field's share of the run, and by the owner's share of the field.
func (s *Service) AggregateUsage(ctx context.Context, wellID snowflake.ID, from, to time.Time) (*usagedomain.PeriodUsage, error) {
	if !to.After(from) {
		return nil, usagedomain.ErrInvalidWindow
	}

	logs, err := s.usageSrc.ListUsageEvents(ctx, wellID, from, to)
	if err != nil {
		return nil, err
	}

	ownershipCache := make(map[snowflake.ID][]fielddomain.FieldOwnership)
	minutes := make(map[snowflake.ID]map[snowflake.ID]float64) // owner -> field -> minutes

	for _, run := range logs {
		overlap := overlapMinutes(run.StartDateTime, run.EndDateTime, from, to)
		if overlap <= 0 {
			continue
		}

		totalPct := 0.0
		for _, fu := range run.FieldUsages {
			if fu.Percentage > 0 {
				totalPct += fu.Percentage
			}
		}
		if totalPct <= 0 {
			s.log.Warn("irrigation run without field usage split",
				zap.String("irrigation_log_id", run.ID.String()))
			continue
		}

		for _, fu := range run.FieldUsages {
			if fu.Percentage <= 0 {
				continue
			}
			fieldShare := fu.Percentage / totalPct

			owners, ok := ownershipCache[fu.FieldID]
			if !ok {
				owners, err = s.ownerships.GetFieldOwnership(ctx, fu.FieldID)
				if err != nil {
					return nil, err
				}
				if err := validateOwnership(owners); err != nil {
					return nil, err
				}
				ownershipCache[fu.FieldID] = owners
			}

			for _, ownership := range owners {
				if ownership.Percentage <= 0 {
					continue
				}
				byField, ok := minutes[ownership.OwnerID]
				if !ok {
					byField = make(map[snowflake.ID]float64)
					minutes[ownership.OwnerID] = byField
				}
				byField[fu.FieldID] += overlap * fieldShare * (ownership.Percentage / 100)
			}
		}
	}

	usage := buildPeriodUsage(minutes)
	if usage.TotalMinutes <= 0 {
		return nil, usagedomain.ErrNoUsage
	}
	return usage, nil
}

func overlapMinutes(runStart, runEnd, from, to time.Time) float64 {
	start := runStart
	if from.After(start) {
		start = from
	}
	end := runEnd
	if to.Before(end) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Minutes()
}

func validateOwnership(owners []fielddomain.FieldOwnership) error {
	if len(owners) == 0 {
		return fielddomain.ErrInvalidOwnership
	}
	sum := 0.0
	for _, o := range owners {
		sum += o.Percentage
	}
	if math.Abs(sum-100) > percentageTolerance {
		return fielddomain.ErrPercentageMismatch
	}
	return nil
}

func buildPeriodUsage(minutes map[snowflake.ID]map[snowflake.ID]float64) *usagedomain.PeriodUsage {
	usage := &usagedomain.PeriodUsage{
		Owners: make([]usagedomain.OwnerUsage, 0, len(minutes)),
	}
	for ownerID, byField := range minutes {
		owner := usagedomain.OwnerUsage{
			OwnerID: ownerID,
			Fields:  make([]usagedomain.FieldMinutes, 0, len(byField)),
		}
		for fieldID, m := range byField {
			owner.Fields = append(owner.Fields, usagedomain.FieldMinutes{FieldID: fieldID, Minutes: m})
			owner.TotalMinutes += m
		}
		sort.Slice(owner.Fields, func(i, j int) bool {
			return owner.Fields[i].FieldID < owner.Fields[j].FieldID
		})
		usage.Owners = append(usage.Owners, owner)
		usage.TotalMinutes += owner.TotalMinutes
	}
	sort.Slice(usage.Owners, func(i, j int) bool {
		return usage.Owners[i].OwnerID < usage.Owners[j].OwnerID
	})
	return usage
}
