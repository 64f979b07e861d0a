package validators

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/entityrepo/pkg/config"
	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/angelmondragon/entityrepo/pkg/pagination"
)

const (
	maxOrderColumnLen = 128
	maxSearchLen      = 128
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePageSettings reads page, pageSize, orderColumn, orderDirection and q.
// Missing values fall back to the configured defaults.
func ParsePageSettings(r *http.Request, cfg config.PaginationConfig) (pagination.Settings, error) {
	defaultSize := cfg.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = pagination.DefaultPageSize
	}
	maxSize := cfg.MaxPageSize
	if maxSize <= 0 {
		maxSize = pagination.MaxPageSize
	}

	page, err := ParseQueryInt(r, "page", 1, 1, math.MaxInt32)
	if err != nil {
		return pagination.Settings{}, err
	}
	pageSize, err := ParseQueryInt(r, "pageSize", min(defaultSize, maxSize), 1, maxSize)
	if err != nil {
		return pagination.Settings{}, err
	}

	q := r.URL.Query()
	settings := pagination.NewSettings(SanitizeParam(q.Get("orderColumn"), maxOrderColumnLen)).
		WithPage(page, pageSize)
	settings.OrderDirection = pagination.ParseDirection(strings.TrimSpace(q.Get("orderDirection")))
	settings.Search = SanitizeParam(q.Get("q"), maxSearchLen)
	return settings, nil
}
