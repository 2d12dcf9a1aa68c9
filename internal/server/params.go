package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryInt reads a non-negative integer query parameter, falling back to def when absent
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return value, nil
}

// pageWindow reads offset and limit, clamping limit to max
func pageWindow(c *gin.Context, defLimit, max int) (limit, offset int, err error) {
	limit, err = queryInt(c, "limit", defLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(c, "offset", 0)
	if err != nil {
		return 0, 0, err
	}

	if limit == 0 {
		limit = defLimit
	}
	if limit > max {
		limit = max
	}

	return limit, offset, nil
}
