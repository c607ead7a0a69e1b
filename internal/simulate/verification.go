package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/timeattack/internal/domain/model"
)

// Verification errors.
var (
	ErrMissingDriver = errors.New("simulated driver missing from leaderboard")
	ErrWrongLap      = errors.New("leaderboard lap differs from expected best")
	ErrUnsorted      = errors.New("leaderboard not sorted by lap time")
)

// Verify checks that board is sorted and holds every expected driver with
// the expected best lap. Drivers that are not simulated are ignored. It
// returns how many expected drivers matched.
func Verify(expected []Entry, board model.Leaderboard) (int, error) {
	for i := 1; i < len(board); i++ {
		if board[i].LapMS < board[i-1].LapMS {
			return 0, fmt.Errorf("%w: position %d (%d ms) ahead of %d (%d ms)",
				ErrUnsorted, i+1, board[i].LapMS, i, board[i-1].LapMS)
		}
	}

	served := make(map[string]model.LeaderboardEntry, len(board))
	for _, e := range board {
		served[e.DriverGUID] = e
	}

	matched := 0
	var errs []error
	for _, want := range expected {
		got, ok := served[want.DriverGUID]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDriver, want.Driver))
		case got.LapMS != want.LapMS:
			errs = append(errs, fmt.Errorf("%w: %s has %d ms, want %d ms", ErrWrongLap, want.Driver, got.LapMS, want.LapMS))
		default:
			matched++
		}
	}
	return matched, errors.Join(errs...)
}
