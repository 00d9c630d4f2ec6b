// Package clock provides the built-in "time" capabilities.
package clock

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // get_time must resolve zones on hosts without a zoneinfo database

	"github.com/harun/toolplan/pkg/capability"
)

// Namespace is the namespace the clock capabilities register under.
const Namespace = "time"

// Options configures clock capability registration.
type Options struct {
	// Now is the clock source. Defaults to time.Now.
	Now func() time.Time
	// Location is used by get_time when neither utc nor timezone is given. Defaults to time.Local.
	Location *time.Location
	// Disabled lists qualified names that are not registered.
	Disabled []string
}

// Register adds the clock capabilities to reg. It must run before reg is sealed.
func Register(reg *capability.Registry, opts Options) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	descriptors := []capability.Descriptor{
		getTime(opts),
		addDays(),
	}

	for _, d := range descriptors {
		if isDisabled(opts.Disabled, d.QualifiedName()) {
			continue
		}
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("failed to register capability %s: %w", d.QualifiedName(), err)
		}
	}
	return nil
}

func isDisabled(disabled []string, name string) bool {
	for _, d := range disabled {
		if d == name {
			return true
		}
	}
	return false
}

func getTime(opts Options) capability.Descriptor {
	return capability.Descriptor{
		Namespace:   Namespace,
		Function:    "get_time",
		Description: "Get the current date and time in RFC3339 format.",
		Parameters: []capability.ParameterSpec{
			{Name: "timezone", Kind: capability.Optional(capability.String), Description: "IANA time zone name, e.g. Asia/Jakarta"},
			{Name: "utc", Kind: capability.Boolean, Description: "Report the time in UTC; takes precedence over timezone"},
		},
		Invoke: func(ctx context.Context, args capability.BoundArguments) (string, error) {
			now := opts.Now()

			if utc, _ := args.Bool("utc"); utc {
				return now.UTC().Format(time.RFC3339), nil
			}

			if tz, ok := args.String("timezone"); ok && tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
				}
				return now.In(loc).Format(time.RFC3339), nil
			}

			return now.In(opts.Location).Format(time.RFC3339), nil
		},
	}
}

func addDays() capability.Descriptor {
	return capability.Descriptor{
		Namespace:   Namespace,
		Function:    "add_days",
		Description: "Shift a date by a number of days (negative to go back) and return it in RFC3339 format.",
		Parameters: []capability.ParameterSpec{
			{Name: "date", Kind: capability.DateTime, Required: true, Description: "Starting date or timestamp"},
			{Name: "days", Kind: capability.Integer, Required: true, Description: "Number of days to add"},
		},
		Invoke: func(ctx context.Context, args capability.BoundArguments) (string, error) {
			date, _ := args.Time("date")
			days, _ := args.Int("days")

			// AddDate normalises out-of-range results; keep the shift within a sane range
			const maxDays = 1_000_000
			if days > maxDays || days < -maxDays {
				return "", fmt.Errorf("days out of range: %d", days)
			}

			return date.AddDate(0, 0, int(days)).Format(time.RFC3339), nil
		},
	}
}
