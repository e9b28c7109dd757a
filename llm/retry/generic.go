package retry

import "context"

// DoValue is a type-safe wrapper around Retryer.Do for calls that produce a value.
//
// Usage:
//
//	status, err := retry.DoValue(ctx, r, func() (OperationStatus, error) {
//	    return client.Status(ctx, handle)
//	})
func DoValue[T any](ctx context.Context, r Retryer, fn func() (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
