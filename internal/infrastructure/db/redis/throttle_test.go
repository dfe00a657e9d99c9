package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewSigninThrottle_Defaults(t *testing.T) {
	th := NewSigninThrottle(nil, 0, 0)
	if th.maxFailures != defaultMaxFailures {
		t.Fatalf("expected %d, got %d", defaultMaxFailures, th.maxFailures)
	}
	if th.window != defaultLockout {
		t.Fatalf("expected %v, got %v", defaultLockout, th.window)
	}

	th = NewSigninThrottle(nil, 3, time.Minute)
	if th.maxFailures != 3 || th.window != time.Minute {
		t.Fatalf("explicit limits ignored: %+v", th)
	}
}

func TestSigninThrottle_Key(t *testing.T) {
	th := NewSigninThrottle(nil, 0, 0)
	if got := th.key("alice"); got != "signin:fail:alice" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestSigninThrottle_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	th := NewSigninThrottle(client, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := th.Locked(ctx, "alice"); err == nil {
		t.Fatal("expected error from unreachable server")
	}
	if err := th.RecordFailure(ctx, "alice"); err == nil {
		t.Fatal("expected error from unreachable server")
	}
	if err := th.Reset(ctx, "alice"); err == nil {
		t.Fatal("expected error from unreachable server")
	}
}
