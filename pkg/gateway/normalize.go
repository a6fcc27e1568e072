package gateway

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
	"github.com/imuii-id/imuii-portal/pkg/logging"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// The backend answers list endpoints in several shapes:
//
//	[ ... ]
//	{"<field>": [ ... ], "total": n, "page": n, "limit": n}
//	{"success": true, "data": <either of the above>, "message": "..."}
//
// Every list response goes through one of the functions below. Unknown
// shapes and null yield fewer items, never an error. An element object that
// does not decode is kept with its id alone; only elements without an id
// are dropped, and each drop is logged.

func normalizeProjects(raw json.RawMessage, page, limit int, logger *zap.Logger) models.Page[models.Item] {
	return normalizeList(raw, "projects", page, limit, itemFromID, logger)
}

func normalizePortfolios(raw json.RawMessage, page, limit int, logger *zap.Logger) models.Page[models.Item] {
	return normalizeList(raw, "portfolios", page, limit, itemFromID, logger)
}

func normalizeEvents(raw json.RawMessage, page, limit int, logger *zap.Logger) models.Page[models.Event] {
	return normalizeList(raw, "events", page, limit, eventFromID, logger)
}

// normalizeRoster reads the projects registered to an event. Membership
// checks only read ids, so an element with an id is never lost.
func normalizeRoster(raw json.RawMessage, logger *zap.Logger) []models.Item {
	return normalizeList(raw, "projects", 0, 0, itemFromID, logger).Items
}

func itemFromID(id models.ID) models.Item   { return models.Item{ID: id} }
func eventFromID(id models.ID) models.Event { return models.Event{ID: id} }

func normalizeList[T any](raw json.RawMessage, field string, page, limit int, fromID func(models.ID) T, logger *zap.Logger) models.Page[T] {
	elems, envelope, _ := jsonutil.ExtractList(raw, field)

	items := make([]T, 0, len(elems))
	for i, elem := range elems {
		obj, ok := jsonutil.AsObject(elem)
		if !ok {
			logger.Warn("Dropping non-object list element",
				zap.String("field", field),
				zap.Int("index", i))
			continue
		}
		var item T
		err := json.Unmarshal(elem, &item)
		if err == nil {
			items = append(items, item)
			continue
		}

		id := models.ID(jsonutil.FlexibleStringValue(obj["id"]))
		if id == "" {
			logger.Warn("Dropping list element without id",
				zap.String("field", field),
				zap.Int("index", i),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		logger.Warn("List element kept with id only",
			zap.String("field", field),
			zap.String("id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		items = append(items, fromID(id))
	}

	result := models.Page[T]{
		Items: items,
		Total: len(items),
		Page:  page,
		Limit: limit,
	}
	if envelope != nil {
		if v, ok := jsonutil.FlexibleIntValue(envelope["total"]); ok {
			result.Total = v
		}
		if v, ok := jsonutil.FlexibleIntValue(envelope["page"]); ok {
			result.Page = v
		}
		if v, ok := jsonutil.FlexibleIntValue(envelope["limit"]); ok {
			result.Limit = v
		}
	}
	return result
}
