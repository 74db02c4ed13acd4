// Package allocation converts weighted usage minutes into monetary shares
// that reconcile exactly to a billed total.
package allocation

import (
	"errors"
	"math"
	"sort"

	"github.com/bwmarrin/snowflake"
)

// Basis is one (owner, field) pair's weighted minutes within a period.
type Basis struct {
	OwnerID snowflake.ID
	FieldID snowflake.ID
	Minutes float64
}

// Share is one allocated row. Amount is in the smallest currency unit.
type Share struct {
	OwnerID         snowflake.ID
	FieldID         snowflake.ID
	BasisMinutes    float64
	SharePercentage float64
	Amount          int64
}

var (
	ErrNoBasis      = errors.New("no_allocation_basis")
	ErrInvalidTotal = errors.New("invalid_total_amount")
)

// Split allocates totalAmount proportionally over the basis rows. Every row
// except the last (in (ownerID, fieldID) order) is rounded to the smallest
// currency unit; the last row absorbs the residual so the sum is exact.
// Independent rounding of N rows can drift by up to N half-units, which is
// why the residual assignment is not optional.
func Split(basis []Basis, totalAmount int64) ([]Share, error) {
	if totalAmount <= 0 {
		return nil, ErrInvalidTotal
	}

	rows := make([]Basis, 0, len(basis))
	totalMinutes := 0.0
	for _, b := range basis {
		if b.Minutes <= 0 {
			continue
		}
		rows = append(rows, b)
		totalMinutes += b.Minutes
	}
	if len(rows) == 0 || totalMinutes <= 0 {
		return nil, ErrNoBasis
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OwnerID != rows[j].OwnerID {
			return rows[i].OwnerID < rows[j].OwnerID
		}
		return rows[i].FieldID < rows[j].FieldID
	})

	shares := make([]Share, len(rows))
	var allocated int64
	for i, row := range rows {
		fraction := row.Minutes / totalMinutes
		share := Share{
			OwnerID:         row.OwnerID,
			FieldID:         row.FieldID,
			BasisMinutes:    row.Minutes,
			SharePercentage: fraction * 100,
		}
		if i == len(rows)-1 {
			share.Amount = totalAmount - allocated
		} else {
			share.Amount = roundMoney(fraction * float64(totalAmount))
			allocated += share.Amount
		}
		shares[i] = share
	}

	return shares, nil
}

// OwnerTotals sums share amounts per owner, preserving (ownerID) order.
func OwnerTotals(shares []Share) []OwnerTotal {
	index := make(map[snowflake.ID]int)
	totals := make([]OwnerTotal, 0)
	for _, share := range shares {
		i, ok := index[share.OwnerID]
		if !ok {
			i = len(totals)
			index[share.OwnerID] = i
			totals = append(totals, OwnerTotal{OwnerID: share.OwnerID})
		}
		totals[i].Amount += share.Amount
		totals[i].BasisMinutes += share.BasisMinutes
	}
	return totals
}

// OwnerTotal is one owner's aggregate share of a period.
type OwnerTotal struct {
	OwnerID      snowflake.ID
	BasisMinutes float64
	Amount       int64
}

func roundMoney(raw float64) int64 {
	return int64(math.Floor(raw + 0.5))
}
