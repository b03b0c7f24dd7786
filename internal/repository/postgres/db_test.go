package postgres

import (
	"errors"
	"testing"
)

type fakeRows struct {
	n      int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.n == 0 {
		return false
	}
	r.n--
	return true
}

func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Close() error { r.closed = true; return nil }

func TestEachRow(t *testing.T) {
	broken := errors.New("connection reset")
	scanFail := errors.New("bad column")

	tests := []struct {
		name    string
		rows    *fakeRows
		fn      func() error
		want    error
		wantCnt int
	}{
		{"all rows", &fakeRows{n: 3}, nil, nil, 3},
		{"iteration fails after a partial read", &fakeRows{n: 2, err: broken}, nil, broken, 2},
		{"scan fails", &fakeRows{n: 3}, func() error { return scanFail }, scanFail, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := eachRow(tt.rows, func() error {
				calls++
				if tt.fn != nil {
					return tt.fn()
				}
				return nil
			})
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if calls != tt.wantCnt {
				t.Errorf("expected %d calls, got %d", tt.wantCnt, calls)
			}
			if !tt.rows.closed {
				t.Error("rows were not closed")
			}
		})
	}
}
