// Package capability describes invocable functions and holds the sealed
// registry the dispatcher resolves them from.
//
// Invariants:
// - (namespace, function) pairs are unique.
// - Registration happens at startup and ends with Seal; the registry is
//   read-only afterwards and Resolve takes no locks.
// - Resolve before Seal is a programming error and panics.
//
// Usage:
//
//	reg := capability.NewRegistry()
//	_ = reg.Register(capability.Descriptor{
//		Namespace: "time",
//		Function:  "get_time",
//		Invoke: func(ctx context.Context, args capability.BoundArguments) (string, error) {
//			return time.Now().Format(time.RFC3339), nil
//		},
//	})
//	reg.Seal()
package capability
