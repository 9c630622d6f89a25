package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/reconnect/internal/db"
	"github.com/erazemk/reconnect/internal/model"
)

func TestClaimAttempts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n, err := ClaimAttempts(ctx, database, 1, "RC-1")
	if err != nil {
		t.Fatalf("ClaimAttempts: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 attempts, got %d", n)
	}

	for want := 1; want <= 3; want++ {
		got, err := IncrementClaimAttempts(ctx, database, 1, "RC-1")
		if err != nil {
			t.Fatalf("IncrementClaimAttempts: %v", err)
		}
		if got != want {
			t.Errorf("expected count %d, got %d", want, got)
		}
	}

	if n, _ := ClaimAttempts(ctx, database, 1, "RC-2"); n != 0 {
		t.Errorf("expected attempts to be per item, got %d", n)
	}

	ResetClaimAttempts(ctx, database, 1)
	if n, _ := ClaimAttempts(ctx, database, 1, "RC-1"); n != 0 {
		t.Errorf("expected 0 attempts after reset, got %d", n)
	}
}

func TestFlagUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "mallory", "", "hash", model.RoleStudent)
	now := t0

	written, err := FlagUser(ctx, database, user.ID, "Repeated incorrect claim answers", now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("FlagUser: %v", err)
	}
	if !written {
		t.Error("expected flag to be written")
	}

	// An active flag is not extended.
	written, _ = FlagUser(ctx, database, user.ID, "again", now.Add(time.Hour), now.Add(25*time.Hour))
	if written {
		t.Error("expected active flag to be left alone")
	}

	f, err := GetFlag(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetFlag: %v", err)
	}
	if f.Reason != "Repeated incorrect claim answers" || f.Username != "mallory" {
		t.Errorf("unexpected flag: %+v", f)
	}
	if !f.Active(now.Add(23*time.Hour)) || f.Active(now.Add(24*time.Hour)) {
		t.Error("expected flag active for exactly 24h")
	}

	flagged, _ := ListFlaggedUsers(ctx, database, now.Add(time.Hour))
	if len(flagged) != 1 {
		t.Errorf("expected 1 flagged user, got %d", len(flagged))
	}
	flagged, _ = ListFlaggedUsers(ctx, database, now.Add(48*time.Hour))
	if len(flagged) != 0 {
		t.Errorf("expected expired flag to be hidden, got %d", len(flagged))
	}

	// An expired flag can be renewed.
	written, _ = FlagUser(ctx, database, user.ID, "renewed", now.Add(48*time.Hour), now.Add(72*time.Hour))
	if !written {
		t.Error("expected expired flag to be renewed")
	}

	lifted, err := UnflagUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("UnflagUser: %v", err)
	}
	if !lifted {
		t.Error("expected flag to be lifted")
	}
	if f, _ := GetFlag(ctx, database, user.ID); f != nil {
		t.Errorf("expected no flag after unflag, got %+v", f)
	}
	if lifted, _ := UnflagUser(ctx, database, user.ID); lifted {
		t.Error("expected second unflag to find nothing")
	}
}
