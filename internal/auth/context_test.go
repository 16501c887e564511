package auth

import (
	"context"
	"testing"
)

func TestWithAuthRoundTrip(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{
		UserID:      7,
		HouseholdID: 3,
		SessionID:   11,
	})

	ac, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context to be present")
	}
	if ac.UserID != 7 || ac.HouseholdID != 3 || ac.SessionID != 11 {
		t.Errorf("auth context = %+v", ac)
	}
	if HouseholdID(ctx) != 3 {
		t.Errorf("HouseholdID = %d, want 3", HouseholdID(ctx))
	}
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Error("expected no auth context")
	}
	if HouseholdID(ctx) != 0 {
		t.Errorf("HouseholdID = %d, want 0", HouseholdID(ctx))
	}
	if UserID(ctx) != 0 {
		t.Errorf("UserID = %d, want 0", UserID(ctx))
	}
}
