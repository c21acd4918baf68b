package database

import "github.com/koustreak/deckbuilder/internal/errs"

// CollectRows reads every row of the result set through scan and returns
// the values in order.
//
// The returned slice is always non-nil (empty slice on zero rows).
// CollectRows always closes the Rows; callers do not need to call Close().
func CollectRows[T any](rows Rows, scan func(Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, wrapScan("failed to scan row", err)
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapScan("error during row iteration", err)
	}
	return result, nil
}

// wrapScan keeps an already classified error intact and marks anything
// else as a query failure.
func wrapScan(msg string, err error) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
