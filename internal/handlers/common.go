package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/notify"
)

// EffectDispatcher runs the side effects a service returns after its write committed.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, effects ...notify.Effect)
}

const dateLayout = "2006-01-02"

func currentCaller(c *gin.Context) (authz.Caller, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return caller, ok
}

// bindPatch decodes a partial update body, rejecting keys the patch does not declare.
func bindPatch(c *gin.Context, out interface{}) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if field, ok := unknownField(err); ok {
			apierrors.BadRequestWithDetails(c, fmt.Sprintf("Field %q cannot be updated.", field), gin.H{"field": field})
			return false
		}
		apierrors.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}

func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// parseDate accepts a calendar date (UTC midnight) or an RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(dateLayout, value, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func optionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDate(*value)
	if err != nil {
		return nil, apierrors.Validation(fmt.Sprintf("Invalid %s.", field))
	}
	return &t, nil
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil, nil
	}
	return optionalDate(&v, key)
}

func queryUint(c *gin.Context, key string) (*uint64, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, apierrors.Validation(fmt.Sprintf("Invalid %s.", key))
	}
	return &id, nil
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}
