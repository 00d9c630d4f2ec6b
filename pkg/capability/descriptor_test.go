package capability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "integer", Integer.String())
	assert.Equal(t, "optional<datetime>", Optional(DateTime).String())
	assert.Equal(t, Optional(String), Optional(Optional(String)))
	assert.Equal(t, Boolean, Optional(Boolean).Elem())
	assert.True(t, Optional(Boolean).IsOptional())
	assert.False(t, Boolean.IsOptional())
	assert.False(t, Kind{}.Valid())
	assert.True(t, Optional(Integer).Valid())
}

func TestBoundArguments(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	args := NewBoundArguments()
	args.Set("city", "Jakarta")
	args.Set("days", int64(3))
	args.Set("utc", true)
	args.Set("at", now)
	args.SetNull("timezone")

	s, ok := args.String("city")
	assert.True(t, ok)
	assert.Equal(t, "Jakarta", s)

	n, ok := args.Int("days")
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	b, ok := args.Bool("utc")
	assert.True(t, ok)
	assert.True(t, b)

	at, ok := args.Time("at")
	assert.True(t, ok)
	assert.True(t, now.Equal(at))

	assert.True(t, args.IsNull("timezone"))
	assert.False(t, args.Has("timezone"))
	assert.Equal(t, 5, args.Len())
	assert.Equal(t, []string{"at", "city", "days", "timezone", "utc"}, args.Names())

	_, ok = args.Int("city")
	assert.False(t, ok, "wrong type lookups report absence")

	args.Set("timezone", "UTC")
	assert.False(t, args.IsNull("timezone"))
	assert.True(t, args.Has("timezone"))
}

func TestError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError("reminder store unavailable", cause)

	assert.Equal(t, "reminder store unavailable: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "no cause", NewError("no cause", nil).Error())
}
