package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct{ scan func(dest ...any) error }

func (r stubRow) Scan(dest ...any) error { return r.scan(dest...) }

// stubPool answers the two queries PG issues. Allow's SELECT returns the
// scripted blocked_until; Failure's upsert returns the scripted count.
type stubPool struct {
	rowErr       error
	blockedUntil time.Time
	updatedAt    time.Time
	failCount    int

	execSQL string
	execErr error
}

func (p *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execSQL = sql
	return pgconn.CommandTag{}, p.execErr
}

func (p *stubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return stubRow{scan: func(dest ...any) error {
			if p.rowErr != nil {
				return p.rowErr
			}
			*(dest[0].(*time.Time)) = p.blockedUntil
			*(dest[1].(*time.Time)) = p.updatedAt
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return stubRow{scan: func(dest ...any) error {
			if p.rowErr != nil {
				return p.rowErr
			}
			*(dest[0].(*int)) = p.failCount
			return nil
		}}
	}
	return stubRow{scan: func(dest ...any) error { return errors.New("unexpected query") }}
}

func newLimiter(p *stubPool) *PG {
	return NewPG(p, 15*time.Minute, 5, 10*time.Minute)
}

func TestAllow(t *testing.T) {
	t.Parallel()

	t.Run("no history allows", func(t *testing.T) {
		l := newLimiter(&stubPool{rowErr: pgx.ErrNoRows})
		ok, wait, err := l.Allow(context.Background(), "alice", []byte("h"))
		if err != nil || !ok || wait != 0 {
			t.Fatalf("ok=%v wait=%v err=%v", ok, wait, err)
		}
	})

	t.Run("active block denies with retry-after", func(t *testing.T) {
		p := &stubPool{blockedUntil: time.Now().Add(8 * time.Minute), updatedAt: time.Now()}
		ok, wait, err := newLimiter(p).Allow(context.Background(), "alice", []byte("h"))
		if err != nil || ok || wait <= 0 {
			t.Fatalf("ok=%v wait=%v err=%v", ok, wait, err)
		}
	})

	t.Run("expired block allows", func(t *testing.T) {
		p := &stubPool{blockedUntil: time.Now().Add(-time.Minute), updatedAt: time.Now()}
		ok, wait, err := newLimiter(p).Allow(context.Background(), "alice", []byte("h"))
		if err != nil || !ok || wait != 0 {
			t.Fatalf("ok=%v wait=%v err=%v", ok, wait, err)
		}
	})

	t.Run("query error propagates", func(t *testing.T) {
		l := newLimiter(&stubPool{rowErr: errors.New("db down")})
		ok, _, err := l.Allow(context.Background(), "alice", []byte("h"))
		if err == nil || ok {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
	})
}

func TestSuccess(t *testing.T) {
	t.Parallel()

	p := &stubPool{}
	if err := newLimiter(p).Success(context.Background(), "alice", []byte("h")); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if !strings.Contains(p.execSQL, "INSERT INTO login_throttle") {
		t.Fatalf("unexpected exec: %s", p.execSQL)
	}

	p.execErr = errors.New("exec failed")
	if err := newLimiter(p).Success(context.Background(), "alice", []byte("h")); err == nil {
		t.Fatalf("want exec error")
	}
}

func TestFailure_BelowThreshold(t *testing.T) {
	t.Parallel()

	blocked, wait, err := newLimiter(&stubPool{failCount: 3}).Failure(context.Background(), "alice", []byte("h"))
	if err != nil || blocked || wait != 0 {
		t.Fatalf("blocked=%v wait=%v err=%v", blocked, wait, err)
	}
}

func TestFailure_AtThresholdBlocks(t *testing.T) {
	t.Parallel()

	p := &stubPool{failCount: 5}
	blocked, wait, err := newLimiter(p).Failure(context.Background(), "alice", []byte("h"))
	if err != nil || !blocked || wait != 10*time.Minute {
		t.Fatalf("blocked=%v wait=%v err=%v", blocked, wait, err)
	}
	if !strings.Contains(p.execSQL, "UPDATE login_throttle SET blocked_until") {
		t.Fatalf("block not written, exec=%s", p.execSQL)
	}
}

func TestFailure_UpsertErrorPropagates(t *testing.T) {
	t.Parallel()

	l := newLimiter(&stubPool{rowErr: errors.New("db down")})
	if _, _, err := l.Failure(context.Background(), "alice", []byte("h")); err == nil {
		t.Fatalf("want upsert error")
	}
}

func TestHashIP(t *testing.T) {
	t.Parallel()

	a := HashIP("192.0.2.1")
	if len(a) != 32 {
		t.Fatalf("hash len=%d, want 32", len(a))
	}
	if string(a) != string(HashIP("192.0.2.1")) {
		t.Fatalf("same input must hash the same")
	}
	if string(a) == string(HashIP("198.51.100.7")) {
		t.Fatalf("different inputs must hash differently")
	}
}
