package lapstore

const defaultPageSize = 500

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithPageSize sets how many rows FetchLaps reads per query.
func WithPageSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.pageSize = n
		}
	}
}
