package service

import (
	"maps"
	"math"
	"slices"

	"gatherly/internal/guests/repository"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
)

const maxSearchLength = 100

// normalizeQuery fills defaults into the guest-list view state and rejects
// unknown filter values.
func normalizeQuery(e *model.Event, q model.GuestQuery) (model.GuestQuery, error) {
	q.Search = sanitizer.TrimAndNormalize(q.Search)
	if len(q.Search) > maxSearchLength {
		return q, apperrors.InvalidInput("search must be at most 100 characters")
	}

	switch q.Status {
	case "":
		q.Status = model.CheckInAll
	case model.CheckInAll, model.CheckInCheckedIn, model.CheckInNotCheckedIn:
	default:
		return q, apperrors.InvalidInput("invalid status parameter: " + string(q.Status))
	}

	switch q.Source {
	case "", model.GuestSourceManual, model.GuestSourceOrder:
	default:
		return q, apperrors.InvalidInput("invalid source parameter: " + string(q.Source))
	}

	if q.Sort == "" {
		q.Sort = repository.DefaultSort
	} else if !repository.ValidSort(q.Sort) {
		return q, apperrors.InvalidInput("invalid sort parameter: " + q.Sort)
	}

	if q.TicketType = sanitizer.NormalizeTicketType(q.TicketType); q.TicketType != "" {
		if t, ok := e.TicketType(q.TicketType); ok {
			q.TicketType = t.Name
		}
	}

	q.Page = config.NormalizePage(q.Page)
	q.PageSize = config.NormalizePageSize(q.PageSize)
	return q, nil
}

// pageStart returns the offset of the first guest on q's page. Pages too far
// out to address saturate at math.MaxInt64, which is always past the end.
func pageStart(q model.GuestQuery) int64 {
	if int64(q.Page-1) > math.MaxInt64/int64(q.PageSize) {
		return math.MaxInt64
	}
	return int64(q.Page-1) * int64(q.PageSize)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
