package pkg

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/wbdash/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSort     = "id:desc"
)

// Columns whitelists the column names a list endpoint accepts in sort and
// filter parameters.
type Columns []string

func (c Columns) allows(name string) bool {
	return validColumn.MatchString(name) && slices.Contains(c, name)
}

// Filter operators selected by a key suffix, e.g. status__gte=400.
var filterOps = []struct {
	suffix string
	clause string
	wrap   func(string) string
}{
	{"__like", " LIKE ?", func(v string) string { return "%" + v + "%" }},
	{"__gte", " >= ?", nil},
	{"__lte", " <= ?", nil},
}

var reservedParams = []string{"page", "page_size", "sort"}

var validColumn = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest reads page, page_size and sort from the query string and
// collects every other non-empty parameter as a filter. Out of range paging
// values fall back to the defaults; page_size is capped at 100.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	req := domain.PageRequest{
		Page:     queryInt(c, "page", defaultPage),
		PageSize: min(queryInt(c, "page_size", defaultPageSize), maxPageSize),
		Sort:     c.DefaultQuery("sort", defaultSort),
		Filter:   map[string]string{},
	}
	for key, values := range c.Request.URL.Query() {
		if slices.Contains(reservedParams, key) || len(values) == 0 || values[0] == "" {
			continue
		}
		req.Filter[key] = values[0]
	}
	return req
}

// queryInt returns the positive integer value of key, or def.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Paginate returns a GORM scope applying OFFSET and LIMIT, in the shape a
// pagination.Paginator slice callback receives them.
func Paginate(offset, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(offset).Limit(limit)
	}
}

// Sort returns a GORM scope ordering by req.Sort ("column:asc" or
// "column:desc"). Columns outside cols and malformed values are ignored.
func Sort(req domain.PageRequest, cols Columns) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		field, dir, ok := strings.Cut(req.Sort, ":")
		if !ok {
			return db
		}
		field = strings.TrimSpace(field)
		dir = strings.ToLower(strings.TrimSpace(dir))
		if (dir != "asc" && dir != "desc") || !cols.allows(field) {
			return db
		}
		return db.Order(field + " " + dir)
	}
}

// Filter returns a GORM scope adding a WHERE condition per accepted filter.
// A plain key is an equality match; the __like, __gte and __lte suffixes
// select substring and range comparisons. Keys naming columns outside cols
// are ignored.
func Filter(req domain.PageRequest, cols Columns) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for key, value := range req.Filter {
			field, clause, arg := key, " = ?", value
			for _, op := range filterOps {
				if name, found := strings.CutSuffix(key, op.suffix); found {
					field, clause = name, op.clause
					if op.wrap != nil {
						arg = op.wrap(value)
					}
					break
				}
			}
			if !cols.allows(field) {
				continue
			}
			db = db.Where(field+clause, arg)
		}
		return db
	}
}
